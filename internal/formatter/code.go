package formatter

import (
	"fmt"
	"strconv"
	"strings"
)

// baseIndicators decide DetectResponseType.
var baseIndicators = []string{
	"def ", "class ", "import ", "function ", "const ", "let ",
	"var ", "SELECT ", "INSERT ", "<?php", "<!DOCTYPE", "return ",
	"if __name__", "async ", "await ", "=>", "${", "})",
}

// extraIndicators extend baseIndicators for LooksLikeCode.
var extraIndicators = []string{
	"function(", "<script>", "<style>", "console.log", "print(", "for ",
	"while ", "public class ", "public static", "private ", "void main",
}

// CodeBlock renders code under a language banner. Markdown fences are removed.
func CodeBlock(code, language string) string {
	body := stripFences(code)
	return fmt.Sprintf("\n%s\n📝 %s CODE\n%s\n\n%s\n\n%s\n",
		separator, strings.ToUpper(language), separator, body, separator)
}

// NumberedCode renders code with right-aligned line numbers.
func NumberedCode(code, language string) string {
	lines := strings.Split(stripFences(code), "\n")
	width := len(strconv.Itoa(len(lines)))

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n📝 %s CODE\n%s\n\n", separator, strings.ToUpper(language), separator)
	for i, line := range lines {
		fmt.Fprintf(&b, " %*d|%s\n", width, i+1, line)
	}
	b.WriteString("\n" + separator + "\n")
	return b.String()
}

// CompactCode renders code as "# LANG CODE" followed by "n|line" rows with
// blank lines dropped. Chat widgets detect the header and draw a code box.
func CompactCode(code, language string) string {
	if code == "" {
		return code
	}

	var rows []string
	n := 0
	for _, line := range strings.Split(stripFences(code), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n++
		rows = append(rows, fmt.Sprintf("%d|%s", n, line))
	}
	return "# " + strings.ToUpper(language) + " CODE\n" + strings.Join(rows, "\n")
}

// Code renders code with or without line numbers.
func Code(code, language string, withNumbers bool) string {
	if withNumbers {
		return NumberedCode(code, language)
	}
	return CodeBlock(code, language)
}

// LooksLikeCode reports whether text carries any code indicator.
func LooksLikeCode(text string) bool {
	return containsAny(text, baseIndicators) || containsAny(text, extraIndicators)
}

// DetectResponseType returns "code" or "text".
func DetectResponseType(text string) string {
	if containsAny(text, baseIndicators) {
		return "code"
	}
	return "text"
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// stripFences trims code and removes a leading fence line and a trailing
// closing fence.
func stripFences(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "```") {
		if i := strings.IndexByte(code, '\n'); i >= 0 {
			code = code[i+1:]
		}
	}
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}
