package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"condense/internal/logging"
	"condense/internal/services"
	"condense/internal/staging"
	"condense/internal/textutil"
)

// LockFileName is the advisory lock file kept in the scratch root.
const LockFileName = ".condense.lock"

// ResultsFileName names the results artifact inside each pass's results directory.
const ResultsFileName = "results.json"

// ErrWorkspaceBusy reports that another run holds the scratch root lock.
var ErrWorkspaceBusy = errors.New("scratch root is in use by another condense run")

// Workspace is the scratch directory owned by one run.
type Workspace struct {
	Root  string
	RunID string
	Dir   string

	lock     *flock.Flock
	logger   *slog.Logger
	released bool
}

// PassPaths locates the scratch files of one split/infer/merge pass.
type PassPaths struct {
	SplitDir string
	Results  string
	Merged   string
}

// Acquire locks root, sweeps run directories older than staleAge, and creates a
// fresh run directory named after label. The caller must Release the workspace.
func Acquire(ctx context.Context, root, label string, staleAge time.Duration, logger *slog.Logger) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfig, "workspace", "acquire", "scratch_dir is not set", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "workspace", "acquire", fmt.Sprintf("Create %s", root), err)
	}

	lock := flock.New(filepath.Join(root, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "workspace", "lock", fmt.Sprintf("Lock %s", lock.Path()), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrIO, "workspace", "lock", lock.Path(), ErrWorkspaceBusy)
	}

	if staleAge > 0 {
		result := staging.CleanStale(ctx, root, staleAge, logger)
		if len(result.Removed) > 0 && logger != nil {
			logger.Debug("stale scratch sweep finished", logging.Int("removed", len(result.Removed)))
		}
	}

	runID := uuid.NewString()
	token := textutil.SanitizeToken(strings.TrimSuffix(filepath.Base(label), filepath.Ext(label)))
	dir := filepath.Join(root, token+"-"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrIO, "workspace", "create run dir", fmt.Sprintf("Create %s", dir), err)
	}

	return &Workspace{
		Root:   root,
		RunID:  runID,
		Dir:    dir,
		lock:   lock,
		logger: logger,
	}, nil
}

// Pass creates the split and results directories for pass n (1-based).
func (w *Workspace) Pass(n int) (PassPaths, error) {
	base := filepath.Join(w.Dir, fmt.Sprintf("pass%d", n))
	paths := PassPaths{
		SplitDir: filepath.Join(base, "split"),
		Results:  filepath.Join(base, "results", ResultsFileName),
		Merged:   filepath.Join(base, "merged.txt"),
	}
	for _, dir := range []string{paths.SplitDir, filepath.Dir(paths.Results)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return PassPaths{}, services.Wrap(services.ErrIO, "workspace", "create pass dir", fmt.Sprintf("Create %s", dir), err)
		}
	}
	return paths, nil
}

// Release removes the run directory and unlocks the scratch root. It is safe
// to call more than once.
func (w *Workspace) Release() error {
	if w == nil || w.released {
		return nil
	}
	w.released = true
	var errs []error
	if err := os.RemoveAll(w.Dir); err != nil {
		errs = append(errs, fmt.Errorf("remove run dir: %w", err))
		logging.WarnWithContext(w.logger, "failed to remove run scratch directory", "scratch_cleanup_failed",
			logging.String("path", w.Dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove it manually or run condense scratch clean"),
			logging.String(logging.FieldImpact, "scratch space not reclaimed"),
		)
	}
	if err := w.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("unlock scratch root: %w", err))
	}
	return errors.Join(errs...)
}
