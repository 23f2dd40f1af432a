// Command faq-cli chats with the FAQ assistant and curates its knowledge base.
package main

import (
	"fmt"
	"os"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
