package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dshills/triage/internal/triage"
)

// TextWriter outputs a human-readable summary followed by the comment.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, res *triage.Result) error {
	ew := &errWriter{w: w}

	ew.printf("Issue: %s#%d", res.Issue.FullName(), res.Issue.Number)
	if res.Issue.Title != "" {
		ew.printf(" %q", res.Issue.Title)
	}
	ew.println("")
	ew.printf("Model: %s\n", res.Model)
	if res.Posted {
		ew.printf("Posted: %s\n", res.CommentURL)
	} else {
		ew.println("Posted: no (dry run)")
	}
	if len(res.Redactions) > 0 {
		ew.printf("Redacted: %s\n", formatCounts(res.Redactions))
	}
	ew.printf("Timing: select %dms, generate %dms, post %dms\n",
		res.Timing.SelectMs, res.Timing.GenerateMs, res.Timing.PostMs)
	ew.println(strings.Repeat("─", 60))
	ew.println(res.Comment)

	return ew.err
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
