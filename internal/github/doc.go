// Package github provides a minimal GitHub REST API client for posting
// triage checklists as issue comments.
//
// Besides creating comments it can fetch an issue's title and body, and
// resolve the target repository from an "owner/repo" string or from the
// local git remote when the workflow environment does not name one.
package github
