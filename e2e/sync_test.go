package test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moritzfl/homebrew-vale-ls/e2e/harness"
	"github.com/moritzfl/homebrew-vale-ls/internal/tap"
	"github.com/moritzfl/homebrew-vale-ls/internal/testenv"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

func releases(tags ...string) []testenv.FakeRelease {
	out := make([]testenv.FakeRelease, 0, len(tags))
	for _, tag := range tags {
		out = append(out, testenv.StableRelease(tag, "vale-ls"))
	}
	return out
}

func formulaNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read formula dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSyncProducesLineage(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{
		Releases: releases("v1.1.0", "v2.0.0", "v1.0.0", "v1.1.2"),
	})

	result := h.Run()
	if result.Err != nil {
		t.Fatalf("sync failed: %v\nstderr: %s", result.Err, result.Stderr)
	}

	want := []string{
		"vale-ls.rb",
		"vale-ls@1.0.0.rb", "vale-ls@1.0.rb",
		"vale-ls@1.1.0.rb", "vale-ls@1.1.2.rb", "vale-ls@1.1.rb",
		"vale-ls@2.0.0.rb", "vale-ls@2.0.rb",
	}
	got := formulaNames(t, setup.FormulaDir)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("formula files = %v, want %v", got, want)
	}

	if !strings.Contains(result.Stdout, "Selected 4 releases, latest is 2.0.0. Generating 3 minor aliases.") {
		t.Errorf("missing progress line in stdout:\n%s", result.Stdout)
	}

	latest, err := os.ReadFile(setup.Formula("vale-ls.rb"))
	if err != nil {
		t.Fatalf("read latest formula: %v", err)
	}
	for _, want := range []string{"class ValeLs < Formula", `version "2.0.0"`, "strategy :github_latest"} {
		if !strings.Contains(string(latest), want) {
			t.Errorf("latest formula missing %q", want)
		}
	}
	if strings.Contains(string(latest), "keg_only") {
		t.Errorf("latest formula must not be keg-only")
	}

	alias, err := os.ReadFile(setup.Formula("vale-ls@1.1.rb"))
	if err != nil {
		t.Fatalf("read alias formula: %v", err)
	}
	for _, want := range []string{"class ValeLsAT11 < Formula", `version "1.1.2"`, "keg_only :versioned_formula", `regex(/^v?1\.1\.\d+$/i)`} {
		if !strings.Contains(string(alias), want) {
			t.Errorf("alias formula missing %q", want)
		}
	}
}

func TestSyncSecondRunIsNoop(t *testing.T) {
	h := &harness.Harness{T: t}
	h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.3.7", "v0.3.8")})

	if result := h.Run("sync"); result.Err != nil {
		t.Fatalf("first sync failed: %v", result.Err)
	}

	result := h.Run("sync")
	if result.Err != nil {
		t.Fatalf("second sync failed: %v", result.Err)
	}
	if strings.Contains(result.Stdout, "Wrote") {
		t.Errorf("second run rewrote files:\n%s", result.Stdout)
	}
	if !strings.Contains(result.Stdout, "0 written") {
		t.Errorf("summary should report no writes:\n%s", result.Stdout)
	}
}

func TestSyncPrune(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.3.8")})
	stale := setup.WriteFormula(t, "vale-ls@1.0.rb", "class ValeLsAT10 < Formula\nend\n")

	result := h.Run("sync")
	if result.Err != nil {
		t.Fatalf("sync failed: %v", result.Err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("stale formula removed without --prune: %v", err)
	}

	result = h.Run("sync", "--prune")
	if result.Err != nil {
		t.Fatalf("sync --prune failed: %v", result.Err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected %s to be pruned", stale)
	}
	if !strings.Contains(result.Stdout, "Deleted "+stale) {
		t.Errorf("missing delete line in stdout:\n%s", result.Stdout)
	}
	if _, err := os.Stat(setup.Formula("vale-ls.rb")); err != nil {
		t.Errorf("latest formula must survive pruning: %v", err)
	}
}

func TestSyncIdentifiesBuildToGitHub(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.3.8")})

	if result := h.Run("plan"); result.Err != nil {
		t.Fatalf("plan failed: %v", result.Err)
	}
	if got := setup.GitHub.UserAgent(); got != "sync-tap/test" {
		t.Errorf("User-Agent = %q, want %q", got, "sync-tap/test")
	}
}

func TestSyncDryRun(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.3.8")})
	stale := setup.WriteFormula(t, "vale-ls@0.1.rb", "stale\n")

	result := h.Run("--dry-run", "--prune")
	if result.Err != nil {
		t.Fatalf("dry run failed: %v", result.Err)
	}

	if got := formulaNames(t, setup.FormulaDir); len(got) != 1 || got[0] != "vale-ls@0.1.rb" {
		t.Errorf("dry run changed the formula directory: %v", got)
	}
	for _, want := range []string{
		"Would write " + setup.Formula("vale-ls.rb"),
		"Would write " + setup.Formula("vale-ls@0.3.rb"),
		"Would write " + setup.Formula("vale-ls@0.3.8.rb"),
		"Would delete " + stale,
	} {
		if !strings.Contains(result.Stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, result.Stdout)
		}
	}
}

func TestSyncSkipsIncompleteRelease(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: []testenv.FakeRelease{
		testenv.StableRelease("v0.3.8", "vale-ls"),
		testenv.StableRelease("v0.4.0", "vale-ls").Without(
			"vale-ls-x86_64-apple-darwin.zip",
			"vale-ls-aarch64-unknown-linux-gnu.zip",
		),
	}})

	result := h.Run()
	if result.Err != nil {
		t.Fatalf("sync failed: %v", result.Err)
	}
	want := "Skipping v0.4.0: missing assets vale-ls-x86_64-apple-darwin.zip, vale-ls-aarch64-unknown-linux-gnu.zip"
	if !strings.Contains(result.Stderr, want) {
		t.Errorf("stderr missing %q:\n%s", want, result.Stderr)
	}
	if _, err := os.Stat(setup.Formula("vale-ls@0.4.rb")); !os.IsNotExist(err) {
		t.Errorf("incomplete release must not produce a formula")
	}
}

func TestSyncMissingTemplate(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.3.8"), NoTemplate: true})

	result := h.Run()
	if result.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode)
	}
	if !errors.Is(result.Err, tap.ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", result.Err)
	}
	if _, err := os.Stat(setup.FormulaDir); !os.IsNotExist(err) {
		t.Errorf("formula directory must not be created")
	}
}

func TestSyncNoReleases(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("nightly", "v1.0")})

	result := h.Run()
	if !errors.Is(result.Err, versions.ErrNoReleases) {
		t.Fatalf("expected ErrNoReleases, got %v", result.Err)
	}
	if _, err := os.Stat(setup.FormulaDir); !os.IsNotExist(err) {
		t.Errorf("formula directory must not be created")
	}
}

func TestSyncConfigFile(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{
		Releases: releases("v0.1.0", "v0.3.8"),
		Config:   "formula_dir: out\nconstraint: \">= 0.2\"\n",
	})

	result := h.Run()
	if result.Err != nil {
		t.Fatalf("sync failed: %v", result.Err)
	}

	got := formulaNames(t, filepath.Join(setup.TapDir, "out"))
	want := []string{"vale-ls.rb", "vale-ls@0.3.8.rb", "vale-ls@0.3.rb"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("formula files = %v, want %v", got, want)
	}
}

func TestSyncFlagsOverrideEnvironment(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.3.8")})
	t.Setenv("SYNC_TAP_DRY_RUN", "true")

	result := h.Run("--dry-run=false")
	if result.Err != nil {
		t.Fatalf("sync failed: %v", result.Err)
	}
	if _, err := os.Stat(setup.Formula("vale-ls.rb")); err != nil {
		t.Errorf("expected a real write: %v", err)
	}
}

func TestSyncInvalidConfiguration(t *testing.T) {
	h := &harness.Harness{T: t}
	h.NewIsolatedFS(nil)

	result := h.Run("--repo", "nope", "--concurrency", "0")
	if result.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode)
	}
	for _, want := range []string{"owner/name", "concurrency"} {
		if !strings.Contains(result.Err.Error(), want) {
			t.Errorf("error %q does not mention %q", result.Err, want)
		}
	}
}

func TestPlanWritesManifest(t *testing.T) {
	h := &harness.Harness{T: t}
	setup := h.NewIsolatedFS(&harness.FSOptions{Releases: releases("v0.2.0", "v0.3.7", "v0.3.8")})
	manifest := filepath.Join(setup.BaseDir, "plan.json")

	result := h.Run("plan", "--manifest", manifest)
	if result.Err != nil {
		t.Fatalf("plan failed: %v", result.Err)
	}
	if setup.GitHub.DownloadCalls() != 0 {
		t.Errorf("plan downloaded %d assets", setup.GitHub.DownloadCalls())
	}
	if _, err := os.Stat(setup.FormulaDir); !os.IsNotExist(err) {
		t.Errorf("plan must not create the formula directory")
	}
	if !strings.Contains(result.Stdout, "vale-ls@0.3.rb") {
		t.Errorf("plan output missing alias row:\n%s", result.Stdout)
	}

	raw, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var entries map[string]versions.ManifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("manifest has %d entries, want 3", len(entries))
	}
	if !entries["0.3.8"].Latest || !entries["0.3.8"].MinorAlias {
		t.Errorf("0.3.8 should be latest and minor alias: %+v", entries["0.3.8"])
	}
	if entries["0.3.7"].MinorAlias {
		t.Errorf("0.3.7 must not be a minor alias")
	}
	if !strings.HasPrefix(string(raw), "{\n  \"0.3.8\"") {
		t.Errorf("manifest should list the newest version first:\n%s", raw)
	}
}
