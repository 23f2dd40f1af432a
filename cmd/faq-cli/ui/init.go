// Package ui provides terminal output helpers for the faq-cli.
package ui

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	out         io.Writer = os.Stdout
	errOut      io.Writer = os.Stderr
	verboseFlag bool
	interactive = isatty.IsTerminal(os.Stdout.Fd())
)

// Init applies the global output flags.
func Init(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor || !interactive {
		color.NoColor = true
	}
}

// SetOutput redirects regular and error output. Spinners and progress bars
// are disabled on anything but the process terminal.
func SetOutput(stdout, stderr io.Writer) {
	out, errOut = stdout, stderr
	interactive = false
	color.NoColor = true
}

// Verbose reports whether --verbose was given.
func Verbose() bool {
	return verboseFlag
}

// IsTerminal reports whether output goes to a terminal.
func IsTerminal() bool {
	return interactive
}

// Writer returns the regular output.
func Writer() io.Writer {
	return out
}

// ErrWriter returns the diagnostic output.
func ErrWriter() io.Writer {
	return errOut
}
