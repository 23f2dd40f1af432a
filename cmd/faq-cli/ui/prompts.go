package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter reads answers to prompts from a line-oriented input.
type Prompter struct {
	reader *bufio.Reader
}

// NewPrompter reads from in.
func NewPrompter(in io.Reader) *Prompter {
	return &Prompter{reader: bufio.NewReader(in)}
}

// ReadLine prints prompt and returns the trimmed input line. io.EOF is
// returned once input is exhausted and nothing was typed.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(message string, defaultValue bool) (bool, error) {
	hint := "y/N"
	if defaultValue {
		hint = "Y/n"
	}

	input, err := p.ReadLine(fmt.Sprintf("%s [%s]: ", message, hint))
	if err != nil {
		return false, err
	}
	input = strings.ToLower(input)
	if input == "" {
		return defaultValue, nil
	}
	return input == "y" || input == "yes", nil
}
