package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeBackend is an httptest server speaking the ollama generate protocol.
type FakeBackend struct {
	*httptest.Server

	mu      sync.Mutex
	prompts []string
	// Respond produces the generated text for a prompt. The default echoes a
	// numbered summary.
	Respond    func(call int, prompt string) string
	failStatus int
}

// NewFakeBackend starts a fake ollama server and registers cleanup.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	fake := &FakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"test"}]}`))
	})
	mux.HandleFunc("/api/generate", fake.handleGenerate)
	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Close)
	return fake
}

func (f *FakeBackend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, body.Prompt)
	call := len(f.prompts)
	respond := f.Respond
	failStatus := f.failStatus
	f.mu.Unlock()

	if failStatus != 0 {
		http.Error(w, "unavailable", failStatus)
		return
	}
	text := fmt.Sprintf("summary %d", call)
	if respond != nil {
		text = respond(call, body.Prompt)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":    "test",
		"response": text,
		"done":     true,
	})
}

// SetFailStatus makes every later generate request fail with status.
// Zero restores normal responses.
func (f *FakeBackend) SetFailStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
}

// Prompts returns a copy of every prompt received so far.
func (f *FakeBackend) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Calls reports how many generate requests were received.
func (f *FakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// PromptContaining returns the first prompt containing substr.
func (f *FakeBackend) PromptContaining(substr string) (string, bool) {
	for _, prompt := range f.Prompts() {
		if strings.Contains(prompt, substr) {
			return prompt, true
		}
	}
	return "", false
}
