package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

// Action is what reconciliation did, or would do, to one file.
type Action string

const (
	ActionUnchanged   Action = "unchanged"
	ActionWritten     Action = "written"
	ActionWouldWrite  Action = "would-write"
	ActionDeleted     Action = "deleted"
	ActionWouldDelete Action = "would-delete"
)

type Decision struct {
	Path   string
	Action Action
}

// Target pairs a formula identity with the release it pins.
type Target struct {
	Identity Identity
	Release  versions.ReleaseInfo
}

// Targets lists every formula a selection produces: the latest formula,
// then minor aliases, then exact pins, each in ascending version order.
func Targets(sel versions.Selection) []Target {
	targets := make([]Target, 0, 1+len(sel.Minors)+len(sel.All))
	targets = append(targets, Target{Identity: Latest(), Release: sel.Latest})
	for _, key := range sel.MinorKeys() {
		targets = append(targets, Target{Identity: MinorAlias(key.Major, key.Minor), Release: sel.Minors[key]})
	}
	for _, r := range sel.All {
		targets = append(targets, Target{Identity: ExactVersion(r.Version), Release: r})
	}
	return targets
}

// Reconciler writes rendered formulas into Dir, leaving files whose
// content is already current untouched. In DryRun mode nothing on disk is
// modified and decisions report what would have happened.
type Reconciler struct {
	Dir         string
	FormulaName string
	Renderer    Renderer
	DryRun      bool
	Logger      zerolog.Logger
}

func (r *Reconciler) Path(id Identity) string {
	return filepath.Join(r.Dir, id.FileName(r.FormulaName))
}

func (r *Reconciler) Reconcile(id Identity, release versions.ReleaseInfo) (Decision, error) {
	path := r.Path(id)

	content, err := r.Renderer.Render(id, release)
	if err != nil {
		return Decision{}, err
	}

	current, err := os.ReadFile(path)
	switch {
	case err == nil && string(current) == content:
		r.Logger.Debug().Str("path", path).Msg("formula up to date")
		return Decision{Path: path, Action: ActionUnchanged}, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return Decision{}, fmt.Errorf("read formula %q: %w", path, err)
	}

	if r.DryRun {
		return Decision{Path: path, Action: ActionWouldWrite}, nil
	}

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return Decision{}, fmt.Errorf("create formula directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return Decision{}, fmt.Errorf("write formula %q: %w", path, err)
	}

	r.Logger.Debug().Str("path", path).Str("version", release.Version.String()).Msg("formula written")
	return Decision{Path: path, Action: ActionWritten}, nil
}

// Prune removes versioned formulas (name@*.rb) that are not in keep.
// The latest formula never matches the pattern. Removal keeps going past
// individual failures and reports them together.
func (r *Reconciler) Prune(keep []string) ([]Decision, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		keepSet[abs] = struct{}{}
	}

	matches, err := filepath.Glob(filepath.Join(r.Dir, r.FormulaName+"@*.rb"))
	if err != nil {
		return nil, fmt.Errorf("scan formula directory: %w", err)
	}

	var (
		decisions []Decision
		errs      *multierror.Error
	)
	for _, path := range matches {
		abs, err := filepath.Abs(path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("resolve %q: %w", path, err))
			continue
		}
		if _, ok := keepSet[abs]; ok {
			continue
		}

		if r.DryRun {
			decisions = append(decisions, Decision{Path: path, Action: ActionWouldDelete})
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("remove obsolete formula %q: %w", path, err))
			continue
		}
		r.Logger.Debug().Str("path", path).Msg("formula pruned")
		decisions = append(decisions, Decision{Path: path, Action: ActionDeleted})
	}

	return decisions, errs.ErrorOrNil()
}
