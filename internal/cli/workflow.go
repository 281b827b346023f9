package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	workflowMarker = "# Generated by triage workflow init"
	workflowFile   = "issue-triage.yml"

	defaultWorkflowPackage = "github.com/dshills/triage/cmd/triage@latest"
)

var (
	workflowForce     bool
	workflowGoVersion string
	workflowModel     string
	workflowPackage   string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage the GitHub Actions workflow that runs triage",
}

var workflowInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write .github/workflows/issue-triage.yml",
	Long: "Write a workflow that triages newly opened issues. The job installs the CLI with " +
		"`go run <package>`; the default assumes github.com/dshills/triage is reachable from " +
		"the runner. Point --package at a fork or a local path (./cmd/triage) otherwise.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := getWorkflowPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		existing, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading workflow file: %v\n", err)
			exitCode = ExitFailure
			return nil
		}
		if err == nil && !isGenerated(string(existing)) && !workflowForce {
			fmt.Fprintf(os.Stderr, "%s exists and was not generated by triage; use --force to overwrite\n", path)
			exitCode = ExitFailure
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating workflows directory: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		content := generateWorkflow(workflowGoVersion, workflowModel, workflowPackage)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing workflow file: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		fmt.Fprintf(os.Stdout, "Wrote issue triage workflow to %s\n", path)
		fmt.Fprintln(os.Stdout, "Add a GEMINI_API_KEY repository secret to enable it.")
		return nil
	},
}

var workflowRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete the generated workflow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := getWorkflowPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		existing, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(os.Stdout, "No triage workflow found.")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error reading workflow file: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		if !isGenerated(string(existing)) && !workflowForce {
			fmt.Fprintf(os.Stderr, "%s was not generated by triage; use --force to remove it\n", path)
			exitCode = ExitFailure
			return nil
		}

		if err := os.Remove(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing workflow file: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		fmt.Fprintf(os.Stdout, "Removed %s\n", path)
		return nil
	},
}

func getWorkflowPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --show-toplevel failed)")
	}
	root := strings.TrimSpace(string(out))
	return filepath.Join(root, ".github", "workflows", workflowFile), nil
}

func isGenerated(content string) bool {
	return strings.HasPrefix(content, workflowMarker)
}

// generateWorkflow renders a workflow that triages newly opened issues.
// The issue fields are passed through env so user text never reaches the
// shell unquoted.
func generateWorkflow(goVersion, model, pkg string) string {
	if pkg == "" {
		pkg = defaultWorkflowPackage
	}
	var b strings.Builder
	b.WriteString(workflowMarker + "\n")
	b.WriteString("name: Issue Triage\n\n")
	b.WriteString("on:\n")
	b.WriteString("  issues:\n")
	b.WriteString("    types: [opened]\n\n")
	b.WriteString("permissions:\n")
	b.WriteString("  contents: read\n")
	b.WriteString("  issues: write\n\n")
	b.WriteString("jobs:\n")
	b.WriteString("  triage:\n")
	b.WriteString("    runs-on: ubuntu-latest\n")
	b.WriteString("    steps:\n")
	if isLocalPackage(pkg) {
		b.WriteString("      - uses: actions/checkout@v4\n")
	}
	b.WriteString("      - uses: actions/setup-go@v5\n")
	b.WriteString("        with:\n")
	fmt.Fprintf(&b, "          go-version: '%s'\n", goVersion)
	b.WriteString("      - name: Triage issue\n")
	b.WriteString("        env:\n")
	b.WriteString("          GEMINI_API_KEY: ${{ secrets.GEMINI_API_KEY }}\n")
	b.WriteString("          GITHUB_TOKEN: ${{ secrets.GITHUB_TOKEN }}\n")
	b.WriteString("          ISSUE_TITLE: ${{ github.event.issue.title }}\n")
	b.WriteString("          ISSUE_BODY: ${{ github.event.issue.body }}\n")
	b.WriteString("          REPO_FULL_NAME: ${{ github.repository }}\n")
	b.WriteString("          ISSUE_NUMBER: ${{ github.event.issue.number }}\n")
	if model != "" {
		fmt.Fprintf(&b, "          TRIAGE_MODEL: %s\n", model)
	}
	fmt.Fprintf(&b, "        run: go run %s run\n", pkg)
	return b.String()
}

// isLocalPackage reports whether pkg is a path inside the checked-out repo.
func isLocalPackage(pkg string) bool {
	return strings.HasPrefix(pkg, "./") || strings.HasPrefix(pkg, "../")
}

func init() {
	workflowCmd.AddCommand(workflowInitCmd)
	workflowCmd.AddCommand(workflowRemoveCmd)
	workflowInitCmd.Flags().BoolVar(&workflowForce, "force", false, "Overwrite a workflow not generated by triage")
	workflowInitCmd.Flags().StringVar(&workflowGoVersion, "go-version", "stable", "Go version for actions/setup-go")
	workflowInitCmd.Flags().StringVar(&workflowModel, "model", "", "Pin TRIAGE_MODEL in the workflow")
	workflowInitCmd.Flags().StringVar(&workflowPackage, "package", defaultWorkflowPackage, "Package passed to go run in the workflow")
	workflowRemoveCmd.Flags().BoolVar(&workflowForce, "force", false, "Remove even if not generated by triage")
}
