package config

import (
	"os"
	"strconv"
	"strings"
)

// Env holds the per-run inputs a workflow passes through the environment.
type Env struct {
	GeminiAPIKey string
	GitHubToken  string
	IssueTitle   string
	IssueBody    string
	RepoFullName string
	IssueNumber  string
}

// ReadEnv reads the run inputs. GOOGLE_API_KEY is accepted when
// GEMINI_API_KEY is unset.
func ReadEnv() Env {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	return Env{
		GeminiAPIKey: key,
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		IssueTitle:   os.Getenv("ISSUE_TITLE"),
		IssueBody:    os.Getenv("ISSUE_BODY"),
		RepoFullName: os.Getenv("REPO_FULL_NAME"),
		IssueNumber:  os.Getenv("ISSUE_NUMBER"),
	}
}

// Number parses IssueNumber. It returns 0 when unset or not a positive integer.
func (e Env) Number() int {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(e.IssueNumber), "#"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
