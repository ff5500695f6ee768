// Package tap mirrors a project's GitHub releases into a Homebrew tap's
// formula directory.
package tap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moritzfl/homebrew-vale-ls/internal/checksum"
	"github.com/moritzfl/homebrew-vale-ls/internal/github"
	"github.com/moritzfl/homebrew-vale-ls/internal/logging"
	"github.com/moritzfl/homebrew-vale-ls/internal/render"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

var ErrTemplateNotFound = errors.New("formula template not found")

// Source lists releases and opens their assets. *github.Client satisfies it.
type Source interface {
	ListReleases(ctx context.Context, repo string) ([]github.Release, error)
	checksum.Downloader
}

type Options struct {
	Source Source

	Repo               string
	FormulaName        string
	ClassName          string // derived from FormulaName when empty
	FormulaDir         string
	TemplatePath       string
	Assets             versions.AssetTable
	IncludePrereleases bool
	Constraint         string
	Prune              bool
	DryRun             bool
	Concurrency        int

	// Out receives one progress line per selection and per file change.
	Out    io.Writer
	Logger zerolog.Logger
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}

func (o Options) assets() versions.AssetTable {
	if o.Assets.IsZero() {
		return versions.DefaultAssetTable(o.FormulaName)
	}
	return o.Assets
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Report summarizes a sync run.
type Report struct {
	Selection versions.Selection
	Decisions []render.Decision
}

// Count returns how many decisions ended in action.
func (r Report) Count(action render.Action) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Action == action {
			n++
		}
	}
	return n
}

// Plan fetches and selects releases without downloading assets or touching
// the formula directory.
func Plan(ctx context.Context, opts Options) (versions.Selection, error) {
	constraint, err := versions.ParseConstraint(opts.Constraint)
	if err != nil {
		return versions.Selection{}, err
	}

	raw, err := opts.Source.ListReleases(ctx, opts.Repo)
	if err != nil {
		return versions.Selection{}, fmt.Errorf("list releases for %s: %w", opts.Repo, err)
	}
	opts.Logger.Debug().Int("count", len(raw)).Str("repo", opts.Repo).Msg("fetched releases")

	parser := versions.Parser{
		Assets:             opts.assets(),
		IncludePrereleases: opts.IncludePrereleases,
		Constraint:         constraint,
	}

	var accepted []versions.ReleaseInfo
	for _, r := range raw {
		result := parser.Parse(r)
		if result.Accepted() {
			accepted = append(accepted, result.Release)
			continue
		}
		logSkip(opts.Logger, result.Skip)
	}

	sel, err := versions.Select(accepted)
	if err != nil {
		return versions.Selection{}, fmt.Errorf("%s: %w", opts.Repo, err)
	}
	return sel, nil
}

// Sync brings the formula directory in line with the repository's
// releases: latest formula first, then minor aliases, then exact pins.
func Sync(ctx context.Context, opts Options) (Report, error) {
	tmpl, err := loadTemplate(opts.TemplatePath)
	if err != nil {
		return Report{}, err
	}

	sel, err := Plan(ctx, opts)
	if err != nil {
		return Report{}, err
	}

	fmt.Fprintf(opts.out(), "Selected %d releases, latest is %s. Generating %d minor aliases.\n",
		len(sel.All), sel.Latest.Version, len(sel.Minors))

	resolver := &checksum.Resolver{
		Downloader:  opts.Source,
		Concurrency: opts.Concurrency,
		Logger:      component(opts.Logger, "checksum"),
	}
	done := logging.Timed(opts.Logger, "checksums")
	sums, err := resolver.ResolveAll(ctx, sel.All)
	done()
	if err != nil {
		return Report{}, err
	}
	sel, err = sel.WithChecksums(sums)
	if err != nil {
		return Report{}, err
	}

	classBase := opts.ClassName
	if classBase == "" {
		classBase = render.ClassBase(opts.FormulaName)
	}
	reconciler := &render.Reconciler{
		Dir:         opts.FormulaDir,
		FormulaName: opts.FormulaName,
		Renderer: render.Renderer{
			Template:    tmpl,
			Repo:        opts.Repo,
			FormulaName: opts.FormulaName,
			ClassBase:   classBase,
			Assets:      opts.assets(),
		},
		DryRun: opts.DryRun,
		Logger: component(opts.Logger, "reconcile"),
	}

	report := Report{Selection: sel}
	var keep []string
	for _, target := range render.Targets(sel) {
		decision, err := reconciler.Reconcile(target.Identity, target.Release)
		if err != nil {
			return report, err
		}
		keep = append(keep, decision.Path)
		report.Decisions = append(report.Decisions, decision)
		printDecision(opts.out(), decision)
	}

	if !opts.Prune {
		return report, nil
	}

	pruned, err := reconciler.Prune(keep)
	for _, decision := range pruned {
		report.Decisions = append(report.Decisions, decision)
		printDecision(opts.out(), decision)
	}
	if err != nil {
		return report, fmt.Errorf("prune: %w", err)
	}
	return report, nil
}

func loadTemplate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(raw), nil
}

func logSkip(logger zerolog.Logger, skip *versions.Skip) {
	if skip.Reason == versions.SkipMissingAssets {
		logger.Warn().Msgf("Skipping %s: missing assets %s", skip.Tag, strings.Join(skip.Missing, ", "))
		return
	}
	logger.Debug().Str("tag", skip.Tag).Str("reason", string(skip.Reason)).Msg("skipping release")
}

func printDecision(w io.Writer, d render.Decision) {
	switch d.Action {
	case render.ActionWritten:
		fmt.Fprintf(w, "Wrote %s\n", d.Path)
	case render.ActionWouldWrite:
		fmt.Fprintf(w, "Would write %s\n", d.Path)
	case render.ActionDeleted:
		fmt.Fprintf(w, "Deleted %s\n", d.Path)
	case render.ActionWouldDelete:
		fmt.Fprintf(w, "Would delete %s\n", d.Path)
	}
}
