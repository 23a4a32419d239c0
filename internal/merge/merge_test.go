package merge_test

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"condense/internal/chunk"
	"condense/internal/merge"
	"condense/internal/results"
	"condense/internal/services"
)

func writeArtifact(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMergeOutOfOrderArtifact(t *testing.T) {
	input := writeArtifact(t, `{"chunk_2.txt":"C","chunk_0.txt":"A","chunk_1.txt":"B"}`)
	out := filepath.Join(t.TempDir(), "merged.txt")
	if err := merge.Merge(input, out, merge.Options{}); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "A\nB\nC\n" {
		t.Fatalf("unexpected merge %q", data)
	}
}

func TestMergeDuplicateIndex(t *testing.T) {
	input := writeArtifact(t, `{"chunk_1.txt":"B","chunk_01.txt":"B again"}`)
	out := filepath.Join(t.TempDir(), "merged.txt")
	err := merge.Merge(input, out, merge.Options{})
	if !errors.Is(err, services.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk_01.txt and chunk_1.txt") {
		t.Fatalf("expected both source ids named, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output, stat err=%v", statErr)
	}
}

func TestMergeOrderInvariance(t *testing.T) {
	artifact := map[string]json.RawMessage{}
	var want strings.Builder
	for i := 0; i < 25; i++ {
		text := strings.Repeat(string(rune('a'+i)), i+1)
		encoded, _ := json.Marshal(text)
		artifact[chunk.FileName("chunk", i, 25)] = encoded
		want.WriteString(text + "\n")
	}
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20; trial++ {
		// Rebuild the map in a shuffled insertion order.
		keys := make([]string, 0, len(artifact))
		for key := range artifact {
			keys = append(keys, key)
		}
		rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		shuffled := make(map[string]json.RawMessage, len(keys))
		for _, key := range keys {
			shuffled[key] = artifact[key]
		}
		got, err := merge.MergeEntries(shuffled, merge.Options{})
		if err != nil {
			t.Fatalf("MergeEntries returned error: %v", err)
		}
		if got != want.String() {
			t.Fatalf("trial %d: unexpected merge %q", trial, got)
		}
	}
}

func TestMergeSingleShotRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     string
	}{
		{name: "trailing newline kept exact", document: "first line\nsecond   line\n", want: "first line\nsecond   line\n"},
		{name: "separator appended when missing", document: "hello world", want: "hello world\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := chunk.Chunks(tc.document, chunk.Config{SingleShot: true})
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), "results.json")
			items := []results.Result{{SourceID: chunk.FileName("chunk", chunks[0].Index, 1), Text: chunks[0].Text, Status: results.StatusOK}}
			if err := results.Write(path, items, false); err != nil {
				t.Fatal(err)
			}
			out := filepath.Join(t.TempDir(), "out.txt")
			if err := merge.Merge(path, out, merge.Options{}); err != nil {
				t.Fatalf("Merge returned error: %v", err)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tc.want {
				t.Fatalf("merged %q, want %q", data, tc.want)
			}
		})
	}
}

func TestMergeBackendTags(t *testing.T) {
	cases := []struct {
		tag      string
		artifact string
		want     string
	}{
		{tag: "ollama", artifact: `{"chunk_001.txt":{"response":"B"},"chunk_000.txt":{"response":"A"}}`, want: "A\nB\n"},
		{tag: "koboldai", artifact: `{"chunk_000.txt":{"results":[{"text":"A"}]}}`, want: "A\n"},
		{tag: "openai", artifact: `{"chunk_000.txt":{"choices":[{"message":{"content":"A"}}]}}`, want: "A\n"},
		{tag: "ollama", artifact: `{"chunk_000.txt":"already text"}`, want: "already text\n"},
	}
	for _, tc := range cases {
		var artifact map[string]json.RawMessage
		if err := json.Unmarshal([]byte(tc.artifact), &artifact); err != nil {
			t.Fatal(err)
		}
		got, err := merge.MergeEntries(artifact, merge.Options{Tag: tc.tag})
		if err != nil {
			t.Fatalf("%s: MergeEntries returned error: %v", tc.tag, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.tag, got, tc.want)
		}
	}
}

func TestMergeCustomSeparator(t *testing.T) {
	artifact := map[string]json.RawMessage{
		"p_0.txt": json.RawMessage(`"A"`),
		"p_1.txt": json.RawMessage(`"B"`),
	}
	got, err := merge.MergeEntries(artifact, merge.Options{Separator: "\n\n"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "A\n\nB\n\n" {
		t.Fatalf("unexpected merge %q", got)
	}
}

func TestMergeDataErrors(t *testing.T) {
	cases := map[string]struct {
		artifact string
		tag      string
	}{
		"no index":       {artifact: `{"notes.txt":"x"}`},
		"missing text":   {artifact: `{"chunk_0.txt":null}`},
		"object as text": {artifact: `{"chunk_0.txt":{"response":"x"}}`},
		"missing field":  {artifact: `{"chunk_0.txt":{"done":true}}`, tag: "ollama"},
	}
	for name, tc := range cases {
		var artifact map[string]json.RawMessage
		if err := json.Unmarshal([]byte(tc.artifact), &artifact); err != nil {
			t.Fatal(err)
		}
		if _, err := merge.MergeEntries(artifact, merge.Options{Tag: tc.tag}); !errors.Is(err, services.ErrData) {
			t.Fatalf("%s: expected ErrData, got %v", name, err)
		}
	}
}

func TestMergeUnknownTag(t *testing.T) {
	artifact := map[string]json.RawMessage{"chunk_0.txt": json.RawMessage(`"A"`)}
	if _, err := merge.MergeEntries(artifact, merge.Options{Tag: "llamafile"}); !errors.Is(err, services.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestMergeTruncatesBadEntryByRune(t *testing.T) {
	body := `{"chunk_001.txt": {"note": "` + strings.Repeat("é", 60) + `"}}`
	path := writeArtifact(t, body)
	err := merge.Merge(path, filepath.Join(t.TempDir(), "out.txt"), merge.Options{})
	if err == nil {
		t.Fatal("expected error for non-string entry")
	}
	if !utf8.ValidString(err.Error()) {
		t.Fatalf("error message is not valid UTF-8: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "...") {
		t.Fatalf("expected truncated excerpt in %q", err.Error())
	}
}
