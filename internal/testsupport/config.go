package testsupport

import (
	"path/filepath"
	"testing"

	"condense/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are shortened so backend failures resolve quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Backend.RetryAttempts = 1
	cfgVal.Backend.RetryBaseDelayMS = 1
	cfgVal.Backend.RetryMaxDelayMS = 1
	cfgVal.Backend.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackend points the config at a backend of the given kind.
func WithBackend(kind, url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.Kind = kind
		b.cfg.Backend.URL = url
	}
}

// WithMaxTokens overrides the first-pass token budget.
func WithMaxTokens(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Splitter.MaxTokens = n
	}
}

// WithWatchDirs places the watch output and archive directories under the test root.
func WithWatchDirs() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.OutputDir = filepath.Join(b.baseDir, "summaries")
		b.cfg.Watch.ArchiveDir = filepath.Join(b.baseDir, "archive")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}
