package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/triage/internal/github"
	"github.com/dshills/triage/internal/providers"
	"github.com/dshills/triage/internal/redact"
)

// ModelSelector chooses the model for a run. It must always return a
// usable model name.
type ModelSelector interface {
	Select(ctx context.Context) string
}

// Commenter posts issue comments.
type Commenter interface {
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*github.Comment, error)
}

// Runner wires the three calls of a triage run together.
type Runner struct {
	Selector  ModelSelector
	Generator providers.Generator
	Commenter Commenter
	Logger    *slog.Logger
}

// Run triages one issue. On dry runs the comment is built but not posted
// and Commenter may be nil.
func (r *Runner) Run(ctx context.Context, issue Issue, opts Options) (*Result, error) {
	if r.Generator == nil {
		return nil, errors.New("no generator configured")
	}
	if !opts.DryRun && r.Commenter == nil {
		return nil, errors.New("no commenter configured")
	}

	startTime := time.Now()
	res := &Result{RunID: opts.RunID, Issue: issue}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	log := r.logger().With("run_id", res.RunID)

	selectStart := time.Now()
	res.Model = opts.Model
	if res.Model == "" {
		if r.Selector == nil {
			return nil, errors.New("no model pinned and no selector configured")
		}
		res.Model = r.Selector.Select(ctx)
	} else {
		log.Debug("using pinned model", "model", res.Model)
	}
	res.Timing.SelectMs = time.Since(selectStart).Milliseconds()

	title, body := issue.Title, issue.Body
	if opts.RedactSecrets {
		t, b := redact.Scan(title), redact.Scan(body)
		title, body = t.Text, b.Text
		res.Redactions = mergeCounts(t.Counts, b.Counts)
		if n := t.Total() + b.Total(); n > 0 {
			log.Warn("redacted secrets from issue text", "count", n)
		}
	}

	log.Info(fmt.Sprintf("Sending request to Gemini with model: %s ...", res.Model), "model", res.Model)
	genStart := time.Now()
	text, err := r.Generator.Generate(ctx, res.Model, BuildPrompt(opts.Instructions, title, body))
	if err != nil {
		return nil, fmt.Errorf("generating checklist with %s: %w", res.Model, err)
	}
	res.Timing.GenerateMs = time.Since(genStart).Milliseconds()
	res.Comment = FormatComment(opts.CommentHeader, text)

	if opts.DryRun {
		log.Info("dry run, not posting comment", "issue", issue.Number, "repo", issue.FullName())
		res.Timing.TotalMs = time.Since(startTime).Milliseconds()
		return res, nil
	}

	log.Info("Posting to GitHub...", "repo", issue.FullName(), "issue", issue.Number)
	postStart := time.Now()
	comment, err := r.Commenter.CreateIssueComment(ctx, issue.Owner, issue.Repo, issue.Number, res.Comment)
	if err != nil {
		return nil, fmt.Errorf("commenting on %s#%d: %w", issue.FullName(), issue.Number, err)
	}
	res.Timing.PostMs = time.Since(postStart).Milliseconds()
	res.Posted = true
	res.CommentID = comment.ID
	res.CommentURL = comment.HTMLURL
	res.Timing.TotalMs = time.Since(startTime).Milliseconds()

	log.Info("Done!", "comment_url", res.CommentURL)
	return res, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func mergeCounts(a, b map[string]int) map[string]int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]int, len(a)+len(b))
	maps.Copy(out, a)
	for k, v := range b {
		out[k] += v
	}
	return out
}
