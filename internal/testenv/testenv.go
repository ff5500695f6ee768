// Package testenv provides isolated test environments: a temp tap checkout,
// a private XDG config home and an optional fake GitHub API.
//
// Usage:
//
//	// Isolated dirs:
//	env := testenv.New(t)
//	env.Dirs.Tap     // tap checkout root
//	env.Dirs.Formula // <tap>/Formula
//
//	// With the default formula template and a fake GitHub:
//	env := testenv.New(t,
//		testenv.WithTemplate(),
//		testenv.WithGitHub(testenv.StableRelease("v0.3.8", "vale-ls")),
//	)
//	env.GitHub.URL()
package testenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"

	"github.com/moritzfl/homebrew-vale-ls/internal/config"
	"github.com/moritzfl/homebrew-vale-ls/internal/render"
)

// IsolatedDirs holds the directory paths created for the test.
type IsolatedDirs struct {
	Base    string // temp root (parent of all dirs)
	Tap     string // tap checkout
	Formula string // <tap>/Formula, not created up front
	Config  string // XDG_CONFIG_HOME
}

// TemplatePath is where the default template option writes to.
func (d IsolatedDirs) TemplatePath() string {
	return filepath.Join(d.Tap, "scripts", "formula.rb.tmpl")
}

// Env is a unified test environment with isolated directories and optional
// higher-level capabilities (config, fake GitHub).
type Env struct {
	Dirs   IsolatedDirs
	Config *config.FileConfig
	GitHub *FakeGitHub
}

// Option configures an Env during construction.
type Option func(t *testing.T, e *Env)

// WithConfig parses yaml and writes it as the tap-local config file.
func WithConfig(yaml string) Option {
	return func(t *testing.T, e *Env) {
		t.Helper()
		cfg, err := config.FromString(yaml)
		if err != nil {
			t.Fatalf("testenv: creating config: %v", err)
		}
		path := filepath.Join(e.Dirs.Tap, config.LocalFile)
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("testenv: writing config: %v", err)
		}
		e.Config = &cfg
	}
}

// WithTemplate installs the built-in formula template in the tap.
func WithTemplate() Option {
	return func(t *testing.T, e *Env) {
		t.Helper()
		path := e.Dirs.TemplatePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("testenv: creating template dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(render.DefaultTemplate()), 0o644); err != nil {
			t.Fatalf("testenv: writing template: %v", err)
		}
	}
}

// WithGitHub starts a fake GitHub API serving releases.
func WithGitHub(releases ...FakeRelease) Option {
	return func(t *testing.T, e *Env) {
		t.Helper()
		e.GitHub = NewFakeGitHub(t, releases...)
	}
}

// New creates an isolated test environment. It:
//  1. Creates a temp directory with a tap and a config subdirectory
//  2. Points XDG_CONFIG_HOME at the config dir and clears GITHUB_TOKEN
//     (both restored on test cleanup)
//  3. Applies any options (e.g. WithConfig)
func New(t *testing.T, opts ...Option) *Env {
	t.Helper()

	// Resolve symlinks on the base temp dir so paths match os.Getwd()
	// after chdir (macOS: /var → /private/var).
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("testenv: resolving temp dir symlinks: %v", err)
	}

	dirs := IsolatedDirs{
		Base:   base,
		Tap:    filepath.Join(base, "tap"),
		Config: filepath.Join(base, "config"),
	}
	dirs.Formula = filepath.Join(dirs.Tap, "Formula")

	for _, dir := range []string{dirs.Tap, dirs.Config} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("testenv: creating dir %s: %v", dir, err)
		}
	}

	t.Setenv("XDG_CONFIG_HOME", dirs.Config)
	t.Setenv("GITHUB_TOKEN", "")
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	env := &Env{Dirs: dirs}

	for _, opt := range opts {
		opt(t, env)
	}

	return env
}

// WriteFormula drops a file into the formula directory, creating it.
func (e *Env) WriteFormula(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(e.Dirs.Formula, 0o755); err != nil {
		t.Fatalf("testenv: creating formula dir: %v", err)
	}
	path := filepath.Join(e.Dirs.Formula, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("testenv: writing formula %s: %v", name, err)
	}
	return path
}
