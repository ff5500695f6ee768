package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/moritzfl/homebrew-vale-ls/internal/cmd"
	"github.com/moritzfl/homebrew-vale-ls/internal/testenv"
)

// Harness provides an isolated tap checkout and a fake GitHub API for
// integration tests.
type Harness struct {
	T *testing.T
}

// RunResult holds the outcome of a CLI command execution.
type RunResult struct {
	ExitCode int
	Err      error
	Stdout   string
	Stderr   string
}

// SetupResult holds the resolved paths from NewIsolatedFS.
type SetupResult struct {
	BaseDir    string
	TapDir     string
	FormulaDir string
	ConfigDir  string
	GitHub     *testenv.FakeGitHub
}

// FSOptions selects what the isolated tap starts with.
type FSOptions struct {
	Releases   []testenv.FakeRelease
	NoTemplate bool   // leave scripts/formula.rb.tmpl out
	Config     string // tap-local .sync-tap.yaml content
}

// NewIsolatedFS creates an isolated test environment.
//
// Delegates directory and fake GitHub setup to testenv.New, points the CLI
// at the fake through SYNC_TAP_API_URL, then chdirs into the tap
// (restored on cleanup).
func (h *Harness) NewIsolatedFS(opts *FSOptions) *SetupResult {
	h.T.Helper()

	if opts == nil {
		opts = &FSOptions{}
	}

	envOpts := []testenv.Option{testenv.WithGitHub(opts.Releases...)}
	if !opts.NoTemplate {
		envOpts = append(envOpts, testenv.WithTemplate())
	}
	if opts.Config != "" {
		envOpts = append(envOpts, testenv.WithConfig(opts.Config))
	}
	env := testenv.New(h.T, envOpts...)

	h.T.Setenv("SYNC_TAP_API_URL", env.GitHub.URL())

	// Chdir to the tap so the default tap directory is the CWD.
	prevDir, err := os.Getwd()
	if err != nil {
		h.T.Fatalf("harness: getting cwd: %v", err)
	}
	if err := os.Chdir(env.Dirs.Tap); err != nil {
		h.T.Fatalf("harness: chdir to tap dir: %v", err)
	}
	h.T.Cleanup(func() {
		_ = os.Chdir(prevDir)
	})

	return &SetupResult{
		BaseDir:    env.Dirs.Base,
		TapDir:     env.Dirs.Tap,
		FormulaDir: env.Dirs.Formula,
		ConfigDir:  env.Dirs.Config,
		GitHub:     env.GitHub,
	}
}

// Formula returns the path of name inside the formula directory.
func (r *SetupResult) Formula(name string) string {
	return filepath.Join(r.FormulaDir, name)
}

// WriteFormula seeds a formula file.
func (r *SetupResult) WriteFormula(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(r.FormulaDir, 0o755); err != nil {
		t.Fatalf("harness: creating formula dir: %v", err)
	}
	path := r.Formula(name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("harness: writing formula %s: %v", name, err)
	}
	return path
}

// Run executes a CLI command through the full cmd.NewRootCmd Cobra pipeline.
func (h *Harness) Run(args ...string) *RunResult {
	return h.RunWithInput("", args...)
}

// RunWithInput is Run with stdin set to input, for confirmation prompts.
func (h *Harness) RunWithInput(input string, args ...string) *RunResult {
	h.T.Helper()

	rootCmd := cmd.NewRootCmd("test", "test")

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()

	exitCode := 0
	if err != nil {
		exitCode = 1
	}

	return &RunResult{ExitCode: exitCode, Err: err, Stdout: stdout.String(), Stderr: stderr.String()}
}
