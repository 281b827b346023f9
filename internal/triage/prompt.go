package triage

import (
	"fmt"
	"strings"
)

// BuildPrompt joins the instructions and the issue into the single text
// part sent to the model.
func BuildPrompt(instructions, title, body string) string {
	var b strings.Builder
	if instructions != "" {
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Title: %s\n\nDescription:\n%s", title, body)
	return b.String()
}

// FormatComment places the generated checklist under header.
func FormatComment(header, text string) string {
	if header == "" {
		return text
	}
	return header + "\n\n" + text
}
