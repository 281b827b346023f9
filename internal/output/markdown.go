package output

import (
	"io"
	"strings"

	"github.com/dshills/triage/internal/triage"
)

// MarkdownWriter outputs the comment body exactly as it is (or would be) posted.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, res *triage.Result) error {
	body := res.Comment
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	_, err := io.WriteString(w, body)
	return err
}
