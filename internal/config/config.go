package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Splitter contains chunking budgets and the prompt text wrapped around each chunk.
type Splitter struct {
	MaxTokens int    `toml:"max_tokens"`
	Header    string `toml:"header"`
	Footer    string `toml:"footer"`
	// ChunkConfig points at a JSON {"header","footer"} file that overrides
	// Header/Footer for the first pass.
	ChunkConfig string `toml:"chunk_config"`
	FinalHeader string `toml:"final_header"`
	FinalFooter string `toml:"final_footer"`
	// FinalChunkConfig overrides FinalHeader/FinalFooter for the final pass.
	FinalChunkConfig string `toml:"final_chunk_config"`
}

// Backend contains connection and retry settings for the generative backend.
type Backend struct {
	Kind             string `toml:"kind"`
	URL              string `toml:"url"`
	Model            string `toml:"model"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryAttempts    int    `toml:"retry_attempts"`
	RetryBaseDelayMS int    `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int    `toml:"retry_max_delay_ms"`
	ParamsFile       string `toml:"params_file"`
}

// Merge contains merge output settings.
type Merge struct {
	Separator string `toml:"separator"`
}

// Pipeline contains orchestrator settings.
type Pipeline struct {
	NormalizeTranscript bool `toml:"normalize_transcript"`
	StaleScratchHours   int  `toml:"stale_scratch_hours"`
}

// Watch contains configuration for the inbox watcher.
type Watch struct {
	Extensions   []string `toml:"extensions"`
	SettleMillis int      `toml:"settle_millis"`
	OutputDir    string   `toml:"output_dir"`
	ArchiveDir   string   `toml:"archive_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for condense.
//
// Configuration sections by subsystem:
//   - Paths: scratch and log directories
//   - Splitter: token budget and header/footer wrapping for both passes
//   - Backend: generate endpoint, model, timeout, and retry policy
//   - Merge: separator between merged summaries
//   - Pipeline: transcript normalization and stale scratch cleanup
//   - Watch: inbox watcher behaviour
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Splitter Splitter `toml:"splitter"`
	Backend  Backend  `toml:"backend"`
	Merge    Merge    `toml:"merge"`
	Pipeline Pipeline `toml:"pipeline"`
	Watch    Watch    `toml:"watch"`
	Logging  Logging  `toml:"logging"`
}

// ConfigEnv names an environment variable that points at the config file when
// no --config flag is given.
const ConfigEnv = "CONDENSE_CONFIG"

// projectConfigName is looked up in the working directory after the user config.
const projectConfigName = "condense.toml"

// DefaultConfigPath returns the user-level config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/condense/config.toml")
}

// Load reads the config file at path, or the first file found on the search
// path when path is empty, then applies defaults, environment overrides, and
// validation. It returns the resolved file path and whether that file existed.
// Unknown keys are rejected.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, resolved, true, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, resolved, exists, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, exists, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// searchPaths lists the config candidates in priority order. An explicit
// path or CONDENSE_CONFIG is the only candidate when set.
func searchPaths(explicit string) ([]string, error) {
	if explicit = strings.TrimSpace(explicit); explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(ConfigEnv))
	}
	if explicit != "" {
		p, err := expandPath(explicit)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	}
	user, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	project, err := expandPath(projectConfigName)
	if err != nil {
		return nil, err
	}
	return []string{user, project}, nil
}

func resolveConfigPath(explicit string) (string, bool, error) {
	candidates, err := searchPaths(explicit)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.IsDir():
			return "", false, fmt.Errorf("config path %s is a directory", candidate)
		case err == nil:
			return candidate, true, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates the scratch and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StaleScratchAge returns how old an abandoned scratch run directory must be
// before it is removed at startup.
func (c *Config) StaleScratchAge() time.Duration {
	return time.Duration(c.Pipeline.StaleScratchHours) * time.Hour
}

// expandPath resolves a leading "~" and makes the result absolute.
// "~user" forms are left to the shell.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + value[1:]
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath applies the same "~" and absolute-path rules used for config fields.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultScratchDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "condense", "scratch")
	}
	return defaultScratchFallback
}

// CreateSample writes the annotated sample config to path, creating parent
// directories. It refuses to replace an existing file unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := f.WriteString(sampleConfig); err != nil {
		f.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return f.Close()
}

// BackendConfig contains the resolved backend connection settings.
type BackendConfig struct {
	Kind           string
	URL            string
	Model          string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	ParamsFile     string
}

// GetBackend returns the backend connection settings with durations resolved.
func (c *Config) GetBackend() BackendConfig {
	return BackendConfig{
		Kind:           c.Backend.Kind,
		URL:            strings.TrimSpace(c.Backend.URL),
		Model:          strings.TrimSpace(c.Backend.Model),
		Timeout:        time.Duration(c.Backend.TimeoutSeconds) * time.Second,
		RetryAttempts:  c.Backend.RetryAttempts,
		RetryBaseDelay: time.Duration(c.Backend.RetryBaseDelayMS) * time.Millisecond,
		RetryMaxDelay:  time.Duration(c.Backend.RetryMaxDelayMS) * time.Millisecond,
		ParamsFile:     c.Backend.ParamsFile,
	}
}
