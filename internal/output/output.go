package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dshills/triage/internal/triage"
)

// Writer renders a triage result.
type Writer interface {
	Write(w io.Writer, res *triage.Result) error
}

// Formats lists the accepted result formats.
var Formats = []string{"text", "json", "markdown"}

// GetWriter returns the writer for format. "md" is accepted for markdown.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	}
	return nil, fmt.Errorf("unsupported output format %q (want one of %v)", format, Formats)
}

// WriteResult renders res to outPath, or to stdout when outPath is "" or
// "-". Missing parent directories are created so workflows can point --out
// into an artifacts folder.
func WriteResult(res *triage.Result, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	if outPath == "" || outPath == "-" {
		return writer.Write(os.Stdout, res)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writer.Write(f, res); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return f.Close()
}
