package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"condense/internal/config"
)

func clearBackendEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONDENSE_BACKEND_URL", "CONDENSE_MODEL", "OLLAMA_HOST", "XDG_CACHE_HOME", config.ConfigEnv} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearBackendEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".cache", "condense", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	wantLogs := filepath.Join(tempHome, ".local", "share", "condense", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Backend.Kind != "ollama" {
		t.Fatalf("unexpected backend kind: %q", cfg.Backend.Kind)
	}
	if cfg.Backend.URL != "http://localhost:11434" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.URL)
	}
	if cfg.Backend.Model != "phi3" {
		t.Fatalf("unexpected backend model: %q", cfg.Backend.Model)
	}
	if cfg.Splitter.MaxTokens != config.Default().Splitter.MaxTokens {
		t.Fatalf("unexpected max tokens: %d", cfg.Splitter.MaxTokens)
	}
	if !cfg.Pipeline.NormalizeTranscript {
		t.Fatal("expected transcript normalization enabled by default")
	}
	if cfg.Merge.Separator != "\n" {
		t.Fatalf("unexpected separator: %q", cfg.Merge.Separator)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearBackendEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "condense.toml")

	type payload struct {
		Paths struct {
			ScratchDir string `toml:"scratch_dir"`
		} `toml:"paths"`
		Splitter struct {
			MaxTokens int `toml:"max_tokens"`
		} `toml:"splitter"`
		Backend struct {
			Kind          string `toml:"kind"`
			URL           string `toml:"url"`
			Model         string `toml:"model"`
			RetryAttempts int    `toml:"retry_attempts"`
		} `toml:"backend"`
		Pipeline struct {
			NormalizeTranscript bool `toml:"normalize_transcript"`
		} `toml:"pipeline"`
		Watch struct {
			Extensions []string `toml:"extensions"`
		} `toml:"watch"`
	}
	custom := payload{}
	custom.Paths.ScratchDir = filepath.Join(tempDir, "scratch")
	custom.Splitter.MaxTokens = 42
	custom.Backend.Kind = "Kobold"
	custom.Backend.URL = "localhost:5001/"
	custom.Backend.RetryAttempts = 5
	custom.Pipeline.NormalizeTranscript = false
	custom.Watch.Extensions = []string{"SRT", ".txt", "srt", " "}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Splitter.MaxTokens != 42 {
		t.Fatalf("unexpected max tokens: %d", cfg.Splitter.MaxTokens)
	}
	if cfg.Backend.Kind != "koboldai" {
		t.Fatalf("expected kobold alias to normalize, got %q", cfg.Backend.Kind)
	}
	if cfg.Backend.URL != "http://localhost:5001" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.URL)
	}
	if cfg.Backend.RetryAttempts != 5 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Backend.RetryAttempts)
	}
	if cfg.Pipeline.NormalizeTranscript {
		t.Fatal("expected normalization disabled")
	}
	if strings.Join(cfg.Watch.Extensions, ",") != ".srt,.txt" {
		t.Fatalf("unexpected extensions: %v", cfg.Watch.Extensions)
	}
	if cfg.Paths.ScratchDir != filepath.Join(tempDir, "scratch") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearBackendEnv(t)
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown kind", body: "[backend]\nkind = \"llamafile\"\n", wantErr: "backend.kind"},
		{name: "bad scheme", body: "[backend]\nurl = \"ftp://example.com\"\n", wantErr: "http or https"},
		{name: "negative tokens", body: "[splitter]\nmax_tokens = -1\n", wantErr: "max_tokens"},
		{name: "delay ordering", body: "[backend]\nretry_base_delay_ms = 5000\nretry_max_delay_ms = 10\n", wantErr: "retry_max_delay_ms"},
		{name: "malformed", body: "[backend\n", wantErr: "parse config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OLLAMA_HOST", "127.0.0.1:9999")
	t.Setenv("CONDENSE_MODEL", "mistral")

	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config")
	}
	if cfg.Backend.URL != "http://127.0.0.1:9999" {
		t.Fatalf("expected OLLAMA_HOST to apply, got %q", cfg.Backend.URL)
	}
	if cfg.Backend.Model != "mistral" {
		t.Fatalf("expected CONDENSE_MODEL to apply, got %q", cfg.Backend.Model)
	}

	t.Setenv("CONDENSE_BACKEND_URL", "https://llm.internal:8443/")
	cfg, _, _, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.URL != "https://llm.internal:8443" {
		t.Fatalf("expected CONDENSE_BACKEND_URL to win, got %q", cfg.Backend.URL)
	}
}

func TestGetBackendResolvesDurations(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.TimeoutSeconds = 7
	cfg.Backend.RetryBaseDelayMS = 250
	cfg.Backend.RetryMaxDelayMS = 2000

	backend := cfg.GetBackend()
	if backend.Timeout != 7*time.Second {
		t.Fatalf("unexpected timeout: %v", backend.Timeout)
	}
	if backend.RetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("unexpected base delay: %v", backend.RetryBaseDelay)
	}
	if backend.RetryMaxDelay != 2*time.Second {
		t.Fatalf("unexpected max delay: %v", backend.RetryMaxDelay)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Splitter.Header != config.Default().Splitter.Header {
		t.Fatalf("sample header diverges from defaults: %q", cfg.Splitter.Header)
	}
	if cfg.Splitter.FinalFooter != config.Default().Splitter.FinalFooter {
		t.Fatalf("sample final footer diverges from defaults: %q", cfg.Splitter.FinalFooter)
	}
}

func TestCreateSampleRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := config.CreateSample(path, false); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearBackendEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[splitter]\nmax_tokenz = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_tokenz") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadUsesConfigEnv(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "env.toml")
	if err := os.WriteFile(path, []byte("[splitter]\nmax_tokens = 123\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.ConfigEnv, path)
	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path || cfg.Splitter.MaxTokens != 123 {
		t.Fatalf("resolved=%q exists=%v max_tokens=%d", resolved, exists, cfg.Splitter.MaxTokens)
	}
}
