// Package formatter renders answers for terminal and chat-widget display.
// Every function is pure and safe for concurrent use.
package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	lineWidth = 60
	boxInner  = 58
	boxText   = 56
)

var (
	separator    = strings.Repeat("=", lineWidth)
	subSeparator = strings.Repeat("-", lineWidth)
)

// Section is one titled block of a multi-section answer.
type Section struct {
	Title   string
	Content string
}

// Box renders text inside a single-line box with a title bar. Lines longer
// than the box are wrapped on spaces.
func Box(text, title string) string {
	var b strings.Builder
	b.WriteString("\n┌" + strings.Repeat("─", boxInner) + "┐\n")
	b.WriteString("│ " + padRight(title, boxText) + " │\n")
	b.WriteString("├" + strings.Repeat("─", boxInner) + "┤\n")

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		for _, row := range wrap(line, boxText) {
			b.WriteString("│ " + padRight(row, boxText) + " │\n")
		}
	}

	b.WriteString("└" + strings.Repeat("─", boxInner) + "┘\n")
	return b.String()
}

// Simple renders text between two separators under an arrow title.
func Simple(text, title string) string {
	return fmt.Sprintf("\n%s\n➤ %s\n%s\n%s\n%s\n", separator, title, separator, strings.TrimSpace(text), separator)
}

// Sections renders titled blocks in the given order.
func Sections(sections []Section) string {
	var b strings.Builder
	b.WriteString("\n" + separator + "\n")
	for _, s := range sections {
		b.WriteString("⦿ " + s.Title + "\n")
		b.WriteString(subSeparator + "\n")
		b.WriteString(strings.TrimSpace(s.Content) + "\n\n")
	}
	b.WriteString(separator + "\n")
	return b.String()
}

// Error renders an error banner.
func Error(message string) string {
	bang := strings.Repeat("!", lineWidth)
	return fmt.Sprintf("\n%s\n⚠️  ERROR\n%s\n%s\n%s\n", bang, bang, strings.TrimSpace(message), bang)
}

// Success renders a success banner.
func Success(message string) string {
	tick := strings.Repeat("✓", lineWidth/2)
	return fmt.Sprintf("\n%s\n✓ SUCCESS\n%s\n%s\n%s\n", tick, tick, strings.TrimSpace(message), tick)
}

// Text renders text in the named style: "box" or "simple" (the default).
func Text(text, title, style string) string {
	if style == "box" {
		return Box(text, title)
	}
	return Simple(text, title)
}

// wrap splits line into rows of at most width runes, breaking on single
// spaces. A word longer than width occupies its own row unbroken.
func wrap(line string, width int) []string {
	if utf8.RuneCountInString(line) <= width {
		return []string{line}
	}

	var rows []string
	current := ""
	for _, word := range strings.Split(line, " ") {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(word)+1 <= width {
			current += word + " "
			continue
		}
		rows = append(rows, current)
		current = word + " "
	}
	if current != "" {
		rows = append(rows, current)
	}
	return rows
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
