package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"condense/internal/config"
	"condense/internal/inference"
	"condense/internal/services"
	"condense/internal/services/backend"
)

// backendFlags are the connection overrides shared by infer, run, and watch.
type backendFlags struct {
	url    string
	model  string
	kind   string
	params string
}

func (f *backendFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Backend base URL (overrides backend.url)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model name (overrides backend.model)")
	cmd.Flags().StringVar(&f.kind, "kind", "", "Backend kind: ollama, koboldai, openai")
	cmd.Flags().StringVarP(&f.params, "params", "p", "", "Sampling parameter file (.json, .yaml)")
}

// client builds a backend client from configuration plus flag overrides.
func (f *backendFlags) client(cfg *config.Config, logger *slog.Logger) (*backend.Client, error) {
	resolved := cfg.GetBackend()
	if kind := strings.TrimSpace(f.kind); kind != "" {
		resolved.Kind = kind
	}
	if url := strings.TrimSpace(f.url); url != "" {
		if !strings.Contains(url, "://") {
			url = "http://" + url
		}
		resolved.URL = url
	}
	if model := strings.TrimSpace(f.model); model != "" {
		resolved.Model = model
	}
	if params := strings.TrimSpace(f.params); params != "" {
		expanded, err := config.ExpandPath(params)
		if err != nil {
			return nil, services.Wrap(services.ErrConfig, "cli", "params", "", err)
		}
		resolved.ParamsFile = expanded
	}

	params, err := inference.LoadParams(resolved.ParamsFile)
	if err != nil {
		return nil, err
	}

	return backend.NewClient(backend.Config{
		Kind:    resolved.Kind,
		BaseURL: resolved.URL,
		Model:   resolved.Model,
		Timeout: resolved.Timeout,
		Params:  params,
	},
		backend.WithRetryMaxAttempts(resolved.RetryAttempts),
		backend.WithRetryBackoff(resolved.RetryBaseDelay, resolved.RetryMaxDelay),
		backend.WithLogger(logger),
	)
}

// expandArg resolves a user-supplied path argument.
func expandArg(value, name string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Wrap(services.ErrConfig, "cli", "arguments", fmt.Sprintf("%s is required", name), nil)
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return "", services.Wrap(services.ErrConfig, "cli", "arguments", fmt.Sprintf("resolve %s", name), err)
	}
	return expanded, nil
}

// defaultSummaryPath places the summary of input beside it.
func defaultSummaryPath(input string) string {
	base := filepath.Base(input)
	return filepath.Join(filepath.Dir(input), strings.TrimSuffix(base, filepath.Ext(base))+".summary.txt")
}

// unescape interprets backslash escapes such as \n in flag values.
func unescape(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	if unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(value, `"`, `\"`) + `"`); err == nil {
		return unquoted
	}
	return value
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
