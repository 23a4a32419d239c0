package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSplitter(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	return nil
}

func (c *Config) validateSplitter() error {
	if c.Splitter.MaxTokens <= 0 {
		return errors.New("splitter.max_tokens must be positive")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if _, ok := backendKinds[c.Backend.Kind]; !ok {
		return fmt.Errorf("backend.kind %q is not supported (use ollama, koboldai, or openai)", c.Backend.Kind)
	}
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("backend.url %q is not a valid URL", c.Backend.URL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.url %q must use http or https", c.Backend.URL)
	}
	if c.Backend.Kind != "koboldai" && c.Backend.Model == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/condense/config.toml"
		}
		return fmt.Errorf("backend.model is required for %s backends. Set CONDENSE_MODEL or edit %s (create with 'condense config init')", c.Backend.Kind, defaultPath)
	}
	if c.Backend.RetryMaxDelayMS < c.Backend.RetryBaseDelayMS {
		return errors.New("backend.retry_max_delay_ms must be >= backend.retry_base_delay_ms")
	}
	return nil
}
