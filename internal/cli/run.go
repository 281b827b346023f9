package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/triage/internal/config"
	"github.com/dshills/triage/internal/github"
	"github.com/dshills/triage/internal/logging"
	"github.com/dshills/triage/internal/models"
	"github.com/dshills/triage/internal/output"
	"github.com/dshills/triage/internal/providers"
	"github.com/dshills/triage/internal/triage"
)

// Run flags
var (
	flagRepo     string
	flagIssue    int
	flagTitle    string
	flagBody     string
	flagModel    string
	flagFormat   string
	flagOut      string
	flagDryRun   bool
	flagNoRedact bool
)

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	return logOverrides(m)
}

// setupLogging configures slog from cfg and returns a component logger.
// Diagnostics go to stdout so they land in the workflow log.
func setupLogging(cfg config.Config, component string) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Log.Level)
	logging.Init(level, cfg.Log.Format, os.Stdout)
	return logging.New(component)
}

func newGemini(cfg config.Config, apiKey string) (*providers.Gemini, error) {
	return providers.NewGemini(apiKey,
		providers.WithBaseURL(cfg.GeminiBaseURL),
		providers.WithTimeouts(cfg.Timeouts.ListTimeout(), cfg.Timeouts.GenerateTimeout()),
		providers.WithLogger(logging.New("gemini")),
	)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Triage one issue and post the checklist as a comment",
	Long: "Read the issue from flags or the workflow environment (ISSUE_TITLE, ISSUE_BODY, " +
		"REPO_FULL_NAME, ISSUE_NUMBER), pick a Gemini model, generate a triage checklist " +
		"and post it to the issue. Requires GEMINI_API_KEY and GITHUB_TOKEN.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			configFailure(err)
			return nil
		}
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
		}
		log := setupLogging(cfg, "run")

		env := config.ReadEnv()
		if env.GeminiAPIKey == "" || (!flagDryRun && env.GitHubToken == "") {
			log.Error("Missing GEMINI_API_KEY or GITHUB_TOKEN")
			exitCode = ExitFailure
			return nil
		}

		gem, err := newGemini(cfg, env.GeminiAPIKey)
		if err != nil {
			log.Error("creating Gemini client", "error", err)
			exitCode = ExitFailure
			return nil
		}

		var gh *github.Client
		if env.GitHubToken != "" {
			gh, err = github.NewClient(env.GitHubToken, cfg.GitHubAPIURL, cfg.Timeouts.CommentTimeout())
			if err != nil {
				log.Error("creating GitHub client", "error", err)
				exitCode = ExitFailure
				return nil
			}
		}

		ctx := context.Background()

		issue, err := resolveIssue(ctx, env, gh, log)
		if err != nil {
			log.Error("resolving issue", "error", err)
			exitCode = ExitFailure
			return nil
		}

		runID := uuid.NewString()
		runner := &triage.Runner{
			Selector: &models.Selector{
				Lister:   gem,
				Fallback: cfg.FallbackModel,
				Logger:   logging.New("selector").With("run_id", runID),
			},
			Generator: gem,
			Logger:    log,
		}
		// Assigning a nil *github.Client would make a non-nil interface.
		if gh != nil {
			runner.Commenter = gh
		}

		res, err := runner.Run(ctx, issue, triage.Options{
			RunID:         runID,
			Model:         cfg.Model,
			Instructions:  cfg.Instructions,
			CommentHeader: cfg.CommentHeader,
			RedactSecrets: cfg.Privacy.RedactSecrets,
			DryRun:        flagDryRun,
		})
		if err != nil {
			log.Error("triage failed", "error", err)
			if providers.IsAuthError(err) {
				log.Error("check that GEMINI_API_KEY is valid")
			}
			exitCode = ExitFailure
			return nil
		}

		if flagDryRun || flagOut != "" {
			if err := output.WriteResult(res, cfg.Format, flagOut); err != nil {
				log.Error("writing output", "error", err)
				exitCode = ExitFailure
				return nil
			}
		}
		if res.Posted {
			fmt.Fprintf(os.Stdout, "%s Posted triage comment: %s\n", color.GreenString("✓"), res.CommentURL)
		}
		return nil
	},
}

// resolveIssue assembles the issue from flags, env, the git remote and,
// when no text was supplied, the GitHub API.
func resolveIssue(ctx context.Context, env config.Env, gh *github.Client, log *slog.Logger) (triage.Issue, error) {
	issue := triage.Issue{
		Number: env.Number(),
		Title:  env.IssueTitle,
		Body:   env.IssueBody,
	}
	if flagIssue > 0 {
		issue.Number = flagIssue
	}
	if flagTitle != "" {
		issue.Title = flagTitle
	}
	if flagBody != "" {
		issue.Body = flagBody
	}

	fullName := env.RepoFullName
	if flagRepo != "" {
		fullName = flagRepo
	}
	var err error
	if fullName != "" {
		issue.Owner, issue.Repo, err = github.ParseFullName(fullName)
		if err != nil {
			return issue, err
		}
	} else if owner, repo, derr := github.DetectRepo(); derr == nil {
		issue.Owner, issue.Repo = owner, repo
		log.Debug("detected repository from git remote", "repo", issue.FullName())
	} else if !flagDryRun {
		return issue, fmt.Errorf("no repository: set REPO_FULL_NAME or --repo (%v)", derr)
	}

	if issue.Number <= 0 && !flagDryRun {
		return issue, fmt.Errorf("no issue number: set ISSUE_NUMBER or --issue")
	}

	if issue.Title == "" && issue.Body == "" && issue.Number > 0 && issue.Owner != "" && gh != nil {
		fetched, err := gh.GetIssue(ctx, issue.Owner, issue.Repo, issue.Number)
		if err != nil {
			return issue, err
		}
		issue.Title, issue.Body = fetched.Title, fetched.Body
		log.Info("fetched issue text from GitHub", "issue", issue.Number, "repo", issue.FullName())
	}
	return issue, nil
}

func init() {
	runCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository as owner/name (default $REPO_FULL_NAME, then git remote)")
	runCmd.Flags().IntVar(&flagIssue, "issue", 0, "Issue number (default $ISSUE_NUMBER)")
	runCmd.Flags().StringVar(&flagTitle, "title", "", "Issue title (default $ISSUE_TITLE)")
	runCmd.Flags().StringVar(&flagBody, "body", "", "Issue body (default $ISSUE_BODY)")
	runCmd.Flags().StringVar(&flagModel, "model", "", "Pin the Gemini model and skip discovery")
	runCmd.Flags().StringVar(&flagFormat, "format", "", "Result format for --dry-run/--out (text, json, markdown)")
	runCmd.Flags().StringVar(&flagOut, "out", "", "Write the result to this file")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Generate the checklist but don't post it")
	runCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Send issue text without secret redaction")
}
