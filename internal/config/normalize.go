package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSplitter(); err != nil {
		return err
	}
	if err := c.normalizeBackend(); err != nil {
		return err
	}
	c.normalizeMerge()
	c.normalizePipeline()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSplitter() error {
	var err error
	if c.Splitter.ChunkConfig, err = expandPath(strings.TrimSpace(c.Splitter.ChunkConfig)); err != nil {
		return fmt.Errorf("splitter.chunk_config: %w", err)
	}
	if c.Splitter.FinalChunkConfig, err = expandPath(strings.TrimSpace(c.Splitter.FinalChunkConfig)); err != nil {
		return fmt.Errorf("splitter.final_chunk_config: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() error {
	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	if c.Backend.Kind == "" {
		c.Backend.Kind = defaultBackendKind
	}
	if c.Backend.Kind == "kobold" {
		c.Backend.Kind = "koboldai"
	}
	if value, ok := os.LookupEnv("CONDENSE_BACKEND_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.URL = value
	} else if value, ok := os.LookupEnv("OLLAMA_HOST"); ok && c.Backend.Kind == "ollama" && strings.TrimSpace(value) != "" {
		c.Backend.URL = value
	}
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.URL == "" {
		c.Backend.URL = backendKinds[c.Backend.Kind]
	}
	if c.Backend.URL != "" && !strings.Contains(c.Backend.URL, "://") {
		c.Backend.URL = "http://" + c.Backend.URL
	}
	if value, ok := os.LookupEnv("CONDENSE_MODEL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.Model = value
	}
	c.Backend.Model = strings.TrimSpace(c.Backend.Model)
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeoutSeconds
	}
	if c.Backend.RetryAttempts <= 0 {
		c.Backend.RetryAttempts = defaultBackendRetryAttempts
	}
	if c.Backend.RetryBaseDelayMS < 0 {
		c.Backend.RetryBaseDelayMS = 0
	}
	if c.Backend.RetryMaxDelayMS <= 0 {
		c.Backend.RetryMaxDelayMS = defaultBackendRetryMaxDelay
	}
	var err error
	if c.Backend.ParamsFile, err = expandPath(strings.TrimSpace(c.Backend.ParamsFile)); err != nil {
		return fmt.Errorf("backend.params_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeMerge() {
	if c.Merge.Separator == "" {
		c.Merge.Separator = defaultMergeSeparator
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.StaleScratchHours < 0 {
		c.Pipeline.StaleScratchHours = 0
	}
}

func (c *Config) normalizeWatch() error {
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = append([]string(nil), defaultWatchExtensions...)
	} else {
		exts := make([]string, 0, len(c.Watch.Extensions))
		seen := make(map[string]struct{}, len(c.Watch.Extensions))
		for _, ext := range c.Watch.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = append(exts, defaultWatchExtensions...)
		}
		c.Watch.Extensions = exts
	}
	if c.Watch.SettleMillis < 0 {
		c.Watch.SettleMillis = 0
	}
	var err error
	if c.Watch.OutputDir, err = expandPath(strings.TrimSpace(c.Watch.OutputDir)); err != nil {
		return fmt.Errorf("watch.output_dir: %w", err)
	}
	if c.Watch.ArchiveDir, err = expandPath(strings.TrimSpace(c.Watch.ArchiveDir)); err != nil {
		return fmt.Errorf("watch.archive_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
