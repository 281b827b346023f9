package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dshills/triage/internal/config"
)

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagEnvFile = ""
	flagLogLevel = ""
	flagLogFormat = ""
	flagRepo = ""
	flagIssue = 0
	flagTitle = ""
	flagBody = ""
	flagModel = ""
	flagFormat = ""
	flagOut = ""
	flagDryRun = false
	flagNoRedact = false
	workflowForce = false
	workflowGoVersion = "stable"
	workflowModel = ""
	workflowPackage = defaultWorkflowPackage
	configShowYAML = false
}

// isolateEnv points the config at a temp dir and clears every variable a
// run reads, so the developer's environment can't leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{
		"TRIAGE_CONFIG", "TRIAGE_MODEL", "TRIAGE_FALLBACK_MODEL", "TRIAGE_FORMAT",
		"TRIAGE_COMMENT_HEADER", "TRIAGE_LOG_LEVEL", "TRIAGE_LOG_FORMAT",
		"GEMINI_BASE_URL", "GITHUB_API_URL", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"GITHUB_TOKEN", "ISSUE_TITLE", "ISSUE_BODY", "REPO_FULL_NAME", "ISSUE_NUMBER",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	saved := os.Stdout
	os.Stdout = w
	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()
	defer func() { os.Stdout = saved }()
	fn()
	w.Close()
	return <-done
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	savedExitCode := exitCode
	t.Cleanup(func() { exitCode = savedExitCode })
	exitCode = ExitSuccess
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	m := buildOverrides()
	if len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	flagModel = "models/gemini-2.5-pro"
	flagFormat = "json"
	flagLogLevel = "debug"
	flagLogFormat = "json"

	m := buildOverrides()

	expected := map[string]string{
		"model":      "models/gemini-2.5-pro",
		"format":     "json",
		"log.level":  "debug",
		"log.format": "json",
	}
	if len(m) != len(expected) {
		t.Fatalf("buildOverrides() returned %d entries, want %d", len(m), len(expected))
	}
	for k, v := range expected {
		if m[k] != v {
			t.Errorf("buildOverrides()[%q] = %q, want %q", k, m[k], v)
		}
	}
}

func TestOverridesAreConfigKeys(t *testing.T) {
	resetFlags()
	flagModel = "m"
	flagFormat = "text"
	flagLogLevel = "info"
	flagLogFormat = "text"
	for k := range buildOverrides() {
		if !slices.Contains(config.Keys, k) {
			t.Errorf("override key %q is not a config key", k)
		}
	}
}

// --- loadDotEnv tests ---

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("TRIAGE_TEST_FROM_FILE", "")
	t.Setenv("TRIAGE_TEST_PRESET", "process")

	path := filepath.Join(t.TempDir(), ".env")
	content := "TRIAGE_TEST_FROM_FILE=file\nTRIAGE_TEST_PRESET=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Load skips variables that are already set, even to "".
	os.Unsetenv("TRIAGE_TEST_FROM_FILE")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("TRIAGE_TEST_FROM_FILE"); got != "file" {
		t.Errorf("TRIAGE_TEST_FROM_FILE = %q, want %q", got, "file")
	}
	if got := os.Getenv("TRIAGE_TEST_PRESET"); got != "process" {
		t.Errorf("TRIAGE_TEST_PRESET = %q, want process env to win", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
	if err := loadDotEnv(""); err != nil {
		t.Errorf("empty path should be ignored, got %v", err)
	}
}

// --- version command tests ---

func TestVersionCmd_Execute(t *testing.T) {
	resetFlags()
	if err := execute(t, "version"); err != nil {
		t.Errorf("version command returned error: %v", err)
	}
}

// --- run command tests ---

type fakeAPIs struct {
	gemini  *httptest.Server
	github  *httptest.Server
	hits    atomic.Int32
	posted  atomic.Value // string
	prompt  atomic.Value // string
	listErr bool
}

func newFakeAPIs(t *testing.T) *fakeAPIs {
	t.Helper()
	f := &fakeAPIs{}
	f.gemini = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models"):
			if f.listErr {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, `{"models":[
				{"name":"models/gemini-1.0-pro","supportedGenerationMethods":["generateContent"]},
				{"name":"models/gemini-2.5-flash-001","supportedGenerationMethods":["generateContent"]}
			]}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":generateContent"):
			body, _ := io.ReadAll(r.Body)
			f.prompt.Store(r.URL.Path + " " + string(body))
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"- [ ] Reproduce"}]}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	f.github = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/repos/acme/widgets/issues/7/comments" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		var req struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.posted.Store(req.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":99,"html_url":"https://github.com/acme/widgets/issues/7#issuecomment-99"}`)
	}))
	t.Cleanup(f.gemini.Close)
	t.Cleanup(f.github.Close)

	t.Setenv("GEMINI_BASE_URL", f.gemini.URL)
	t.Setenv("GITHUB_API_URL", f.github.URL)
	return f
}

func (f *fakeAPIs) load(v *atomic.Value) string {
	s, _ := v.Load().(string)
	return s
}

func setIssueEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("ISSUE_TITLE", "Crash on save")
	t.Setenv("ISSUE_BODY", "Steps: click save")
	t.Setenv("REPO_FULL_NAME", "acme/widgets")
	t.Setenv("ISSUE_NUMBER", "7")
}

func TestRunCmd_PostsComment(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	f := newFakeAPIs(t)
	setIssueEnv(t)

	if err := execute(t, "run"); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}

	want := "### ♊ Gemini Action Plan\n\n- [ ] Reproduce"
	if got := f.load(&f.posted); got != want {
		t.Errorf("posted body = %q, want %q", got, want)
	}
	prompt := f.load(&f.prompt)
	if !strings.Contains(prompt, "/models/gemini-2.5-flash-001:generateContent") {
		t.Errorf("generate request = %q, want selected gemini-2.5-flash-001", prompt)
	}
	if !strings.Contains(prompt, `Title: Crash on save\n\nDescription:\nSteps: click save`) {
		t.Errorf("prompt missing issue text: %q", prompt)
	}
	if got := f.hits.Load(); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
}

func TestRunCmd_ListFailureUsesFallback(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	f := newFakeAPIs(t)
	f.listErr = true
	setIssueEnv(t)

	if err := execute(t, "run"); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}
	if prompt := f.load(&f.prompt); !strings.Contains(prompt, "/models/gemini-2.5-flash:generateContent") {
		t.Errorf("generate request = %q, want fallback model", prompt)
	}
}

func TestRunCmd_PinnedModelSkipsDiscovery(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	f := newFakeAPIs(t)
	setIssueEnv(t)

	if err := execute(t, "run", "--model", "gemini-2.5-pro"); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}
	if prompt := f.load(&f.prompt); !strings.Contains(prompt, "/models/gemini-2.5-pro:generateContent") {
		t.Errorf("generate request = %q, want pinned model", prompt)
	}
	if got := f.hits.Load(); got != 2 {
		t.Errorf("made %d requests, want 2", got)
	}
}

func TestRunCmd_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"no gemini key", "GEMINI_API_KEY"},
		{"no github token", "GITHUB_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			isolateEnv(t)
			f := newFakeAPIs(t)
			setIssueEnv(t)
			t.Setenv(tt.unset, "")

			if err := execute(t, "run"); err != nil {
				t.Fatalf("run returned error: %v", err)
			}
			if exitCode != ExitFailure {
				t.Errorf("exitCode = %d, want %d", exitCode, ExitFailure)
			}
			if got := f.hits.Load(); got != 0 {
				t.Errorf("made %d requests before failing, want 0", got)
			}
		})
	}
}

func TestRunCmd_DryRunDoesNotPost(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	f := newFakeAPIs(t)
	setIssueEnv(t)
	t.Setenv("GITHUB_TOKEN", "")

	out := filepath.Join(t.TempDir(), "result.json")
	if err := execute(t, "run", "--dry-run", "--format", "json", "--out", out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}
	if got := f.load(&f.posted); got != "" {
		t.Errorf("dry run posted %q", got)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	var res struct {
		Model   string `json:"model"`
		Comment string `json:"comment"`
		Posted  bool   `json:"posted"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if res.Posted {
		t.Error("posted = true for dry run")
	}
	if res.Model != "models/gemini-2.5-flash-001" {
		t.Errorf("model = %q", res.Model)
	}
	if !strings.HasSuffix(res.Comment, "- [ ] Reproduce") {
		t.Errorf("comment = %q", res.Comment)
	}
}

func TestRunCmd_GenerationFailure(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	setIssueEnv(t)
	gem := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer gem.Close()
	t.Setenv("GEMINI_BASE_URL", gem.URL)
	t.Setenv("GITHUB_API_URL", "http://127.0.0.1:1")

	if err := execute(t, "run"); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exitCode != ExitFailure {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitFailure)
	}
}

func TestRunCmd_MissingIssueNumber(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	f := newFakeAPIs(t)
	setIssueEnv(t)
	t.Setenv("ISSUE_NUMBER", "")

	if err := execute(t, "run"); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if exitCode != ExitFailure {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitFailure)
	}
	if got := f.hits.Load(); got != 0 {
		t.Errorf("made %d requests, want 0", got)
	}
}

func TestRunCmd_InvalidConfigExitsFailure(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		creds bool
	}{
		{"bad log level env", map[string]string{"TRIAGE_LOG_LEVEL": "verbose"}, nil, true},
		{"bad format flag", nil, []string{"--format", "sarif"}, true},
		{"bad format env without credentials", map[string]string{"TRIAGE_FORMAT": "sarif"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			isolateEnv(t)
			f := newFakeAPIs(t)
			if tt.creds {
				setIssueEnv(t)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			savedExitCode := exitCode
			t.Cleanup(func() { exitCode = savedExitCode })
			exitCode = ExitSuccess

			rootCmd.SetArgs(append([]string{"run"}, tt.args...))
			if got := Run(); got != ExitFailure {
				t.Errorf("Run() = %d, want %d", got, ExitFailure)
			}
			if got := f.hits.Load(); got != 0 {
				t.Errorf("made %d requests, want 0", got)
			}
		})
	}
}

func TestRunCmd_FallbackWarningCarriesRunID(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	f := newFakeAPIs(t)
	f.listErr = true
	setIssueEnv(t)

	out := captureStdout(t, func() {
		if err := execute(t, "run", "--log-format", "json"); err != nil {
			t.Errorf("run returned error: %v", err)
		}
	})
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d\n%s", exitCode, ExitSuccess, out)
	}

	var warnRunID, doneRunID string
	for _, line := range strings.Split(out, "\n") {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) != nil {
			continue
		}
		msg, _ := rec["msg"].(string)
		id, _ := rec["run_id"].(string)
		switch {
		case strings.HasPrefix(msg, "model discovery failed"):
			if rec["component"] != "selector" {
				t.Errorf("warning component = %v, want selector", rec["component"])
			}
			warnRunID = id
		case msg == "Done!":
			doneRunID = id
		}
	}
	if warnRunID == "" {
		t.Fatalf("fallback warning has no run_id:\n%s", out)
	}
	if warnRunID != doneRunID {
		t.Errorf("warning run_id = %q, run run_id = %q", warnRunID, doneRunID)
	}
}

func TestRunCmd_RejectsArgs(t *testing.T) {
	resetFlags()
	isolateEnv(t)

	if err := execute(t, "run", "extra"); err == nil {
		t.Error("run with positional args should return error")
	}
}

// --- models command tests ---

func TestModelsSelectCmd_Pinned(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	t.Setenv("TRIAGE_MODEL", "models/custom")

	if err := execute(t, "models", "select"); err != nil {
		t.Errorf("models select returned error: %v", err)
	}
}

func TestModelsListCmd_Execute(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	newFakeAPIs(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")

	if err := execute(t, "models", "list"); err != nil {
		t.Errorf("models list returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}
}

func TestModelsListCmd_NoKey(t *testing.T) {
	resetFlags()
	isolateEnv(t)

	if err := execute(t, "models", "list"); err != nil {
		t.Errorf("models list returned error: %v", err)
	}
	if exitCode != ExitFailure {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitFailure)
	}
}

// --- config command tests ---

func TestConfigInit_CreatesFile(t *testing.T) {
	resetFlags()
	tmpDir := isolateEnv(t)

	if err := execute(t, "config", "init"); err != nil {
		t.Fatalf("config init returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "triage", "config.yaml"))
	if err != nil {
		t.Fatalf("config init did not create config.yaml: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config file is not valid YAML: %v", err)
	}
	if cfg.FallbackModel != "models/gemini-2.5-flash" {
		t.Errorf("fallbackModel = %q", cfg.FallbackModel)
	}
}

func TestConfigInit_AlreadyExists(t *testing.T) {
	resetFlags()
	tmpDir := isolateEnv(t)

	cfgDir := filepath.Join(tmpDir, "triage")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	original := []byte("model: models/gemini-2.5-pro\n")
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), original, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "config", "init"); err != nil {
		t.Fatalf("config init with existing file returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfgDir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(original) {
		t.Errorf("config init overwrote existing file: %q", data)
	}
}

func TestConfigSet_UpdatesFile(t *testing.T) {
	resetFlags()
	tmpDir := isolateEnv(t)

	if err := execute(t, "config", "set", "commentHeader", "## Triage"); err != nil {
		t.Fatalf("config set returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "triage", "config.yaml"))
	if err != nil {
		t.Fatalf("cannot read config file: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.CommentHeader != "## Triage" {
		t.Errorf("commentHeader = %q, want %q", cfg.CommentHeader, "## Triage")
	}
}

func TestConfigSet_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "unknownKey", "value"}},
		{"invalid format", []string{"config", "set", "format", "sarif"}},
		{"missing value", []string{"config", "set", "model"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			isolateEnv(t)
			if err := execute(t, tt.args...); err == nil {
				t.Errorf("%v should return error", tt.args)
			}
		})
	}
}

func TestConfigShow_MarksSources(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	t.Setenv("TRIAGE_MODEL", "models/gemini-2.5-pro")

	out := captureStdout(t, func() {
		if err := execute(t, "config", "show"); err != nil {
			t.Errorf("config show returned error: %v", err)
		}
	})
	var modelLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "model ") {
			modelLine = line
		}
	}
	if !strings.Contains(modelLine, "models/gemini-2.5-pro") || !strings.Contains(modelLine, "env:TRIAGE_MODEL") {
		t.Errorf("model line = %q, want value and env source", modelLine)
	}
	if !strings.Contains(out, "fallbackModel") || !strings.Contains(out, "default") {
		t.Errorf("expected defaults listed:\n%s", out)
	}
}

func TestConfigShow_YAML(t *testing.T) {
	resetFlags()
	isolateEnv(t)

	out := captureStdout(t, func() {
		if err := execute(t, "config", "show", "--yaml"); err != nil {
			t.Errorf("config show --yaml returned error: %v", err)
		}
	})
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if cfg.FallbackModel != "models/gemini-2.5-flash" {
		t.Errorf("fallbackModel = %q", cfg.FallbackModel)
	}
}

func TestConfigShow_InvalidEnvExitsFailure(t *testing.T) {
	resetFlags()
	isolateEnv(t)
	t.Setenv("TRIAGE_LOG_FORMAT", "xml")

	if err := execute(t, "config", "show"); err != nil {
		t.Errorf("config show returned error: %v", err)
	}
	if exitCode != ExitFailure {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitFailure)
	}
}

// --- exit code tests ---

func TestExitCodes(t *testing.T) {
	if ExitSuccess != 0 || ExitFailure != 1 || ExitUsageError != 2 {
		t.Errorf("exit codes = %d/%d/%d, want 0/1/2", ExitSuccess, ExitFailure, ExitUsageError)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	resetFlags()
	savedExitCode := exitCode
	t.Cleanup(func() { exitCode = savedExitCode })
	rootCmd.SetArgs([]string{"bogus"})
	if got := Run(); got != ExitUsageError {
		t.Errorf("Run() = %d, want %d", got, ExitUsageError)
	}
}
