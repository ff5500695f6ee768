package tap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moritzfl/homebrew-vale-ls/internal/github"
	"github.com/moritzfl/homebrew-vale-ls/internal/render"
	"github.com/moritzfl/homebrew-vale-ls/internal/testenv"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

func syncOptions(env *testenv.Env, out *bytes.Buffer, logs *bytes.Buffer) Options {
	return Options{
		Source:       env.GitHub.Client(github.WithPerPage(2)),
		Repo:         "errata-ai/vale-ls",
		FormulaName:  "vale-ls",
		FormulaDir:   env.Dirs.Formula,
		TemplatePath: env.Dirs.TemplatePath(),
		Concurrency:  2,
		Out:          out,
		Logger:       zerolog.New(logs),
	}
}

func readFormula(t *testing.T, env *testenv.Env, name string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(env.Dirs.Formula, name))
	require.NoError(t, err)
	return string(raw)
}

func TestSyncWritesAllFormulas(t *testing.T) {
	v110 := testenv.StableRelease("v1.1.0", "vale-ls")
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		v110,
		testenv.StableRelease("v2.0.0", "vale-ls"),
		testenv.StableRelease("v1.0.0", "vale-ls"),
		testenv.StableRelease("v1.1.2", "vale-ls"),
		testenv.StableRelease("v3.0.0-rc.1", "vale-ls"),
	))

	var out, logs bytes.Buffer
	report, err := Sync(context.Background(), syncOptions(env, &out, &logs))
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", report.Selection.Latest.Version.String())
	assert.Equal(t, 8, report.Count(render.ActionWritten))
	assert.Equal(t, 16, env.GitHub.DownloadCalls())

	entries, err := os.ReadDir(env.Dirs.Formula)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"vale-ls.rb",
		"vale-ls@1.0.rb", "vale-ls@1.1.rb", "vale-ls@2.0.rb",
		"vale-ls@1.0.0.rb", "vale-ls@1.1.0.rb", "vale-ls@1.1.2.rb", "vale-ls@2.0.0.rb",
	}, names)

	assert.Contains(t, out.String(), "Selected 4 releases, latest is 2.0.0. Generating 3 minor aliases.\n")
	assert.Contains(t, out.String(), "Wrote "+filepath.Join(env.Dirs.Formula, "vale-ls.rb"))

	alias := readFormula(t, env, "vale-ls@1.1.rb")
	assert.Contains(t, alias, "class ValeLsAT11 < Formula")
	assert.Contains(t, alias, `version "1.1.2"`)

	pinned := readFormula(t, env, "vale-ls@1.1.0.rb")
	assert.Contains(t, pinned, "class ValeLsAT110 < Formula")
	assert.Contains(t, pinned, v110.AssetSum("vale-ls-x86_64-unknown-linux-gnu.zip"))
	assert.NotContains(t, pinned, "livecheck")
}

func TestSyncIsIdempotent(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.7", "vale-ls"),
		testenv.StableRelease("v0.3.8", "vale-ls"),
	))

	var out, logs bytes.Buffer
	_, err := Sync(context.Background(), syncOptions(env, &out, &logs))
	require.NoError(t, err)

	out.Reset()
	report, err := Sync(context.Background(), syncOptions(env, &out, &logs))
	require.NoError(t, err)

	assert.Equal(t, len(report.Decisions), report.Count(render.ActionUnchanged))
	assert.NotContains(t, out.String(), "Wrote")
}

func TestSyncSkipsReleasesMissingAssets(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.8", "vale-ls"),
		testenv.StableRelease("v0.4.0", "vale-ls").Without("vale-ls-aarch64-apple-darwin.zip"),
	))

	var out, logs bytes.Buffer
	report, err := Sync(context.Background(), syncOptions(env, &out, &logs))
	require.NoError(t, err)

	assert.Equal(t, "v0.3.8", report.Selection.Latest.Tag)
	assert.Contains(t, logs.String(), "Skipping v0.4.0: missing assets vale-ls-aarch64-apple-darwin.zip")
	assert.NoFileExists(t, filepath.Join(env.Dirs.Formula, "vale-ls@0.4.0.rb"))
}

func TestSyncDryRun(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.8", "vale-ls"),
	))

	var out, logs bytes.Buffer
	opts := syncOptions(env, &out, &logs)
	opts.DryRun = true
	opts.Prune = true

	report, err := Sync(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Count(render.ActionWouldWrite))
	assert.Contains(t, out.String(), "Would write "+filepath.Join(env.Dirs.Formula, "vale-ls@0.3.8.rb"))
	assert.NoDirExists(t, env.Dirs.Formula)
	assert.Equal(t, 4, env.GitHub.DownloadCalls(), "dry run still resolves checksums")
}

func TestSyncPrunes(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.8", "vale-ls"),
	))
	stale := env.WriteFormula(t, "vale-ls@1.0.rb", "class ValeLsAT10 < Formula\nend\n")
	unrelated := env.WriteFormula(t, "other@1.0.rb", "class OtherAT10 < Formula\nend\n")

	var out, logs bytes.Buffer
	opts := syncOptions(env, &out, &logs)
	opts.Prune = true

	report, err := Sync(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Count(render.ActionDeleted))
	assert.Contains(t, out.String(), "Deleted "+stale)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, unrelated)
	assert.FileExists(t, filepath.Join(env.Dirs.Formula, "vale-ls.rb"))
}

func TestSyncPruneRewritesSelectedFormulas(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.8", "vale-ls"),
	))
	alias := env.WriteFormula(t, "vale-ls@0.3.rb", "class ValeLsAT03 < Formula\n  version \"0.3.1\"\nend\n")

	var out, logs bytes.Buffer
	opts := syncOptions(env, &out, &logs)
	opts.Prune = true

	report, err := Sync(context.Background(), opts)
	require.NoError(t, err)

	assert.Zero(t, report.Count(render.ActionDeleted))
	assert.Contains(t, out.String(), "Wrote "+alias)
	assert.NotContains(t, out.String(), "Deleted")
	assert.Contains(t, readFormula(t, env, "vale-ls@0.3.rb"), `version "0.3.8"`)
}

func TestSyncWithoutPruneKeepsStaleFormulas(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.8", "vale-ls"),
	))
	stale := env.WriteFormula(t, "vale-ls@1.0.rb", "stale\n")

	var out, logs bytes.Buffer
	_, err := Sync(context.Background(), syncOptions(env, &out, &logs))
	require.NoError(t, err)

	assert.FileExists(t, stale)
}

func TestSyncMissingTemplate(t *testing.T) {
	env := testenv.New(t, testenv.WithGitHub(testenv.StableRelease("v0.3.8", "vale-ls")))

	var out, logs bytes.Buffer
	_, err := Sync(context.Background(), syncOptions(env, &out, &logs))

	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Zero(t, env.GitHub.ListCalls())
}

func TestSyncNoValidReleases(t *testing.T) {
	draft := testenv.StableRelease("v0.3.8", "vale-ls")
	draft.Draft = true
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		draft,
		testenv.StableRelease("nightly", "vale-ls"),
	))

	var out, logs bytes.Buffer
	_, err := Sync(context.Background(), syncOptions(env, &out, &logs))

	assert.ErrorIs(t, err, versions.ErrNoReleases)
	assert.NoDirExists(t, env.Dirs.Formula)
	assert.Zero(t, env.GitHub.DownloadCalls())
}

func TestSyncChecksumFailureWritesNothing(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub(
		testenv.StableRelease("v0.3.8", "vale-ls"),
		testenv.StableRelease("v0.3.9", "vale-ls"),
	))

	var out, logs bytes.Buffer
	opts := syncOptions(env, &out, &logs)
	opts.Source = &brokenDownloads{Source: opts.Source, tag: "v0.3.9"}

	_, err := Sync(context.Background(), opts)
	require.ErrorContains(t, err, "connection reset")
	assert.NoDirExists(t, env.Dirs.Formula)
	assert.NotContains(t, out.String(), "Wrote")
}

func TestSyncAPIError(t *testing.T) {
	env := testenv.New(t, testenv.WithTemplate(), testenv.WithGitHub())
	env.GitHub.FailWith(http.StatusInternalServerError)

	var out, logs bytes.Buffer
	_, err := Sync(context.Background(), syncOptions(env, &out, &logs))

	var statusErr *github.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestPlanHonoursConstraintAndPrereleases(t *testing.T) {
	rc := testenv.StableRelease("v0.4.0", "vale-ls")
	rc.Prerelease = true
	env := testenv.New(t, testenv.WithGitHub(
		testenv.StableRelease("v0.1.0", "vale-ls"),
		testenv.StableRelease("v0.3.8", "vale-ls"),
		rc,
	))

	var out, logs bytes.Buffer
	opts := syncOptions(env, &out, &logs)
	opts.Constraint = ">= 0.2"

	sel, err := Plan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "v0.3.8", sel.Latest.Tag)
	assert.Len(t, sel.All, 1)

	opts.IncludePrereleases = true
	sel, err = Plan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "v0.4.0", sel.Latest.Tag)
	assert.Zero(t, env.GitHub.DownloadCalls())
}

func TestPlanRejectsBadConstraint(t *testing.T) {
	env := testenv.New(t, testenv.WithGitHub())

	var out, logs bytes.Buffer
	opts := syncOptions(env, &out, &logs)
	opts.Constraint = "not a range"

	_, err := Plan(context.Background(), opts)
	assert.ErrorContains(t, err, "invalid version constraint")
	assert.Zero(t, env.GitHub.ListCalls())
}

type brokenDownloads struct {
	Source
	tag string
}

func (b *brokenDownloads) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	if strings.Contains(url, "/"+b.tag+"/") {
		return nil, errors.New("connection reset")
	}
	return b.Source.Download(ctx, url)
}
