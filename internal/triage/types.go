package triage

// Issue identifies the issue under triage and carries its text.
type Issue struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// FullName returns "owner/repo".
func (i Issue) FullName() string {
	return i.Owner + "/" + i.Repo
}

// Options controls a single run.
type Options struct {
	// RunID tags the run's logs and result. A new one is generated when empty.
	RunID string
	// Model pins the generation model and skips discovery when set.
	Model         string
	Instructions  string
	CommentHeader string
	RedactSecrets bool
	DryRun        bool
}

// Result describes a completed run.
type Result struct {
	RunID      string         `json:"runId"`
	Model      string         `json:"model"`
	Issue      Issue          `json:"issue"`
	Comment    string         `json:"comment"`
	CommentID  int64          `json:"commentId,omitempty"`
	CommentURL string         `json:"commentUrl,omitempty"`
	Posted     bool           `json:"posted"`
	Redactions map[string]int `json:"redactions,omitempty"`
	Timing     Timing         `json:"timing"`
}

// Timing holds wall-clock durations in milliseconds.
type Timing struct {
	SelectMs   int64 `json:"selectMs"`
	GenerateMs int64 `json:"generateMs"`
	PostMs     int64 `json:"postMs"`
	TotalMs    int64 `json:"totalMs"`
}
