// Package watch turns a directory into an inbox: transcripts dropped into it
// are summarized one at a time once their writes settle.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"condense/internal/logging"
)

// SummarySuffix is appended to the input stem to name summary files.
const SummarySuffix = ".summary.txt"

// Handler processes one settled inbox file.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Dir        string
	Extensions []string
	// Settle is how long a file must go without write events before it is handled.
	Settle time.Duration
	// ProcessExisting queues files already present when the watcher starts.
	ProcessExisting bool
	Logger          *slog.Logger
}

// Watcher feeds settled inbox files to a handler sequentially.
type Watcher struct {
	opts       Options
	handler    Handler
	logger     *slog.Logger
	watcher    *fsnotify.Watcher
	extensions map[string]struct{}
	pending    map[string]time.Time
	handled    map[string]struct{}
}

// New creates a watcher on opts.Dir.
func New(opts Options, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch handler is required")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watch directory is required")
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(opts.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	extensions := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	return &Watcher{
		opts:       opts,
		handler:    handler,
		logger:     logging.NewComponentLogger(opts.Logger, "watch"),
		watcher:    fsw,
		extensions: extensions,
		pending:    make(map[string]time.Time),
		handled:    make(map[string]struct{}),
	}, nil
}

// Run processes inbox files until ctx is cancelled. Handler errors are logged
// and the watcher moves on to the next file.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching inbox",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("dir", w.opts.Dir),
		logging.Duration("settle", w.opts.Settle),
	)

	if w.opts.ProcessExisting {
		if err := w.queueExisting(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(max(w.opts.Settle/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watch_stop"))
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.observe(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some inbox events may have been missed"),
			)

		case now := <-ticker.C:
			for _, path := range w.ready(now) {
				if ctx.Err() != nil {
					break
				}
				w.handle(ctx, path)
			}
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) observe(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if !w.accepts(event.Name) {
			w.logger.Debug("ignoring inbox entry", logging.String("path", event.Name))
			return
		}
		if _, done := w.handled[event.Name]; done {
			return
		}
		w.pending[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
		delete(w.handled, event.Name)
	}
}

// ready pops the pending files that have settled, in name order.
func (w *Watcher) ready(now time.Time) []string {
	var paths []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.opts.Settle {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	for _, path := range paths {
		delete(w.pending, path)
	}
	return paths
}

func (w *Watcher) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	w.handled[path] = struct{}{}
	w.logger.Info("inbox file detected",
		logging.String(logging.FieldEventType, "watch_file"),
		logging.String("path", path),
		logging.Int64("size_bytes", info.Size()),
	)
	if err := w.handler(ctx, path); err != nil {
		delete(w.handled, path)
		logging.ErrorWithContext(w.logger, "inbox file failed", "watch_file_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the cause and copy the file into the inbox again"),
		)
	}
}

func (w *Watcher) queueExisting() error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}
	// Backdate so the first tick handles them.
	seen := time.Now().Add(-w.opts.Settle)
	for _, entry := range entries {
		path := filepath.Join(w.opts.Dir, entry.Name())
		if entry.IsDir() || !w.accepts(path) {
			continue
		}
		w.pending[path] = seen
	}
	return nil
}

func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, SummarySuffix) {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
