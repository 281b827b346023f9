package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/triage/internal/triage"
)

// JSONWriter emits the full result. HTML escaping is off so the markdown
// comment keeps its <, > and & readable for downstream steps.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, res *triage.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding result for %s#%d: %w", res.Issue.FullName(), res.Issue.Number, err)
	}
	return nil
}
