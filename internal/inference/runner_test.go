package inference_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"condense/internal/chunk"
	"condense/internal/inference"
	"condense/internal/logging"
	"condense/internal/merge"
	"condense/internal/results"
	"condense/internal/services"
	"condense/internal/services/backend"
)

type fakeGenerator struct {
	replies map[string]string
	failOn  string
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (backend.Generation, error) {
	f.prompts = append(f.prompts, prompt)
	if source, _ := services.SourceIDFromContext(ctx); source == f.failOn {
		return backend.Generation{}, services.Wrap(services.ErrBackend, "backend", "generate", "failed after 3 attempts", errors.New("http 500"))
	}
	text, ok := f.replies[prompt]
	if !ok {
		text = "summary of " + prompt
	}
	raw, _ := json.Marshal(map[string]string{"response": text})
	return backend.Generation{Text: text, Raw: raw}, nil
}

func newRunner(gen inference.Generator, opts ...inference.Option) (*inference.Runner, *inference.LogReporter) {
	reporter := inference.NewLogReporter(logging.NewNop())
	opts = append([]inference.Option{inference.WithReporter(reporter)}, opts...)
	return inference.NewRunner(gen, opts...), reporter
}

func TestRunScenarioMergesInChunkOrder(t *testing.T) {
	dir := t.TempDir()
	chunkDir := filepath.Join(dir, "split")
	if _, err := chunk.Split("one two three four five", chunk.Config{MaxTokens: 2}, chunkDir); err != nil {
		t.Fatalf("Split: %v", err)
	}
	gen := &fakeGenerator{replies: map[string]string{"one two": "A", "three four": "B", "five": "C"}}
	runner, reporter := newRunner(gen)

	artifact := filepath.Join(dir, "results.json")
	summary, err := runner.Run(context.Background(), chunkDir, artifact)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Chunks != 3 || reporter.Processed() != 3 {
		t.Fatalf("unexpected summary %+v (processed %d)", summary, reporter.Processed())
	}

	merged := filepath.Join(dir, "merged.txt")
	if err := merge.Merge(artifact, merged, merge.Options{}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	data, err := os.ReadFile(merged)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "A\nB\nC\n" {
		t.Fatalf("unexpected merged output %q", data)
	}
}

func TestRunIgnoresNonChunkEntries(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{"chunk_000.txt": "x", "notes.md": "y", "chunk_001.TXT.bak": "z"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "nested.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{}
	runner, _ := newRunner(gen)
	out := filepath.Join(t.TempDir(), "results.json")
	if _, err := runner.Run(context.Background(), dir, out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "x" {
		t.Fatalf("unexpected prompts %q", gen.prompts)
	}
}

func TestRunFailFastWritesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	if _, err := chunk.Split("a b c d e f", chunk.Config{MaxTokens: 2}, dir); err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{failOn: "chunk_001.txt"}
	runner, _ := newRunner(gen)
	out := filepath.Join(t.TempDir(), "results.json")

	_, err := runner.Run(context.Background(), dir, out)
	var chunkErr *inference.ChunkError
	if !errors.As(err, &chunkErr) || chunkErr.SourceID != "chunk_001.txt" {
		t.Fatalf("expected ChunkError for chunk_001.txt, got %v", err)
	}
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk_001.txt") {
		t.Fatalf("expected source id in message, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no artifact, stat err=%v", statErr)
	}
}

func TestRunRawResponses(t *testing.T) {
	dir := t.TempDir()
	if _, err := chunk.Split("hello world", chunk.Config{SingleShot: true}, dir); err != nil {
		t.Fatal(err)
	}
	runner, _ := newRunner(&fakeGenerator{replies: map[string]string{"hello world": "HW"}}, inference.WithRawResponses(true))
	out := filepath.Join(t.TempDir(), "raw.json")
	if _, err := runner.Run(context.Background(), dir, out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	entries, err := results.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	got, err := merge.MergeEntries(entries, merge.Options{Tag: "ollama"})
	if err != nil {
		t.Fatalf("MergeEntries: %v", err)
	}
	if got != "HW\n" {
		t.Fatalf("unexpected merge %q", got)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	runner, _ := newRunner(&fakeGenerator{})
	_, err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "out.json"))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	if _, err := chunk.Split("a b", chunk.Config{MaxTokens: 1}, dir); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, _ := newRunner(&fakeGenerator{})
	_, err := runner.Run(ctx, dir, filepath.Join(t.TempDir(), "out.json"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunWithHTTPBackendExhaustingRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		atomic.AddInt32(&calls, 1)
		if strings.Contains(string(body), "beta") {
			http.Error(w, "model crashed", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"response":"ok"}`)
	}))
	defer server.Close()

	client, err := backend.NewClient(backend.Config{Kind: "ollama", BaseURL: server.URL, Model: "m"},
		backend.WithRetryMaxAttempts(2),
		backend.WithSleeper(func(time.Duration) {}),
	)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := chunk.Split("alpha beta", chunk.Config{MaxTokens: 1}, dir); err != nil {
		t.Fatal(err)
	}
	runner, _ := newRunner(client)
	out := filepath.Join(t.TempDir(), "out.json")
	_, err = runner.Run(context.Background(), dir, out)
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 1 success + 2 failed attempts, got %d calls", got)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no artifact, stat err=%v", statErr)
	}
}
