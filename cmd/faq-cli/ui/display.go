package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	stepColor    = color.New(color.FgBlue)
	botColor     = color.New(color.FgMagenta, color.Bold)
	dimColor     = color.New(color.Faint)
)

// Message prints a plain line.
func Message(format string, args ...interface{}) {
	fmt.Fprintf(out, format+"\n", args...)
}

// Success prints a success line.
func Success(format string, args ...interface{}) {
	successColor.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error line to stderr.
func Error(format string, args ...interface{}) {
	errorColor.Fprintf(errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func Warning(format string, args ...interface{}) {
	warnColor.Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational line.
func Info(format string, args ...interface{}) {
	infoColor.Fprintf(out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step prints a step indicator.
func Step(format string, args ...interface{}) {
	stepColor.Fprintf(out, "→ %s\n", fmt.Sprintf(format, args...))
}

// Debug prints only in verbose mode.
func Debug(format string, args ...interface{}) {
	if !verboseFlag {
		return
	}
	dimColor.Fprintf(out, "  %s\n", fmt.Sprintf(format, args...))
}

// Bot prints a rendered assistant reply.
func Bot(text string) {
	botColor.Fprint(out, "🤖 ")
	fmt.Fprintln(out, text)
}

// Newline prints an empty line.
func Newline() {
	fmt.Fprintln(out)
}

// Section prints an underlined header.
func Section(title string) {
	fmt.Fprintf(out, "\n%s\n%s\n\n", title, strings.Repeat("=", len([]rune(title))))
}

// KeyValue prints an indented key and value.
func KeyValue(key, value string) {
	fmt.Fprintf(out, "  %s: %s\n", key, value)
}

// Table prints rows aligned under headers.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i, h := range headers {
		separator[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// Truncate shortens s to n runes with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
