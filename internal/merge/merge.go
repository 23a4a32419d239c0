// Package merge reassembles a results artifact into one document ordered by
// the numeric chunk index embedded in each source id.
package merge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"condense/internal/chunk"
	"condense/internal/fileutil"
	"condense/internal/results"
	"condense/internal/services"
	"condense/internal/services/backend"
)

// TagText selects artifacts whose values are plain generated text.
const TagText = "text"

// DefaultSeparator follows every merged entry.
const DefaultSeparator = "\n"

// Options controls how entries are decoded and joined.
type Options struct {
	// Tag names the artifact shape: "text", or a backend kind whose raw
	// response objects carry the text ("ollama", "koboldai", "openai").
	Tag       string
	Separator string
}

// Entry is one decoded artifact value.
type Entry struct {
	Index    int
	SourceID string
	Text     string
}

// Merge reads resultsPath and atomically writes the merged document to outPath.
// Nothing is written when any entry fails to decode.
func Merge(resultsPath, outPath string, opts Options) error {
	artifact, err := results.Read(resultsPath)
	if err != nil {
		return err
	}
	merged, err := MergeEntries(artifact, opts)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(outPath, []byte(merged), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "merge", "write", fmt.Sprintf("Write %s", outPath), err)
	}
	return nil
}

// MergeEntries orders artifact entries by chunk index and joins their text.
func MergeEntries(artifact map[string]json.RawMessage, opts Options) (string, error) {
	entries, err := Decode(artifact, opts.Tag)
	if err != nil {
		return "", err
	}
	separator := opts.Separator
	if separator == "" {
		separator = DefaultSeparator
	}
	var builder strings.Builder
	for _, entry := range entries {
		builder.WriteString(entry.Text)
		if !strings.HasSuffix(entry.Text, separator) {
			builder.WriteString(separator)
		}
	}
	return builder.String(), nil
}

// Decode extracts and sorts artifact entries. Duplicate indices are an ErrData failure.
func Decode(artifact map[string]json.RawMessage, tag string) ([]Entry, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		tag = TagText
	}
	if tag != TagText {
		if _, err := backend.LookupAdapter(tag); err != nil {
			return nil, services.Wrap(services.ErrConfig, "merge", "select tag", fmt.Sprintf("Unknown backend tag %q", tag), err)
		}
	}

	entries := make([]Entry, 0, len(artifact))
	owners := make(map[int]string, len(artifact))
	for sourceID, value := range artifact {
		index, err := chunk.ParseIndex(sourceID)
		if err != nil {
			return nil, err
		}
		if other, dup := owners[index]; dup {
			first, second := other, sourceID
			if second < first {
				first, second = second, first
			}
			return nil, services.Wrap(services.ErrData, "merge", "order", fmt.Sprintf("%s and %s both resolve to index %d", first, second, index), nil)
		}
		owners[index] = sourceID

		text, err := extractText(tag, value)
		if err != nil {
			return nil, services.Wrap(services.ErrData, "merge", "extract text", fmt.Sprintf("Entry %s has no generated text", sourceID), err)
		}
		entries = append(entries, Entry{Index: index, SourceID: sourceID, Text: text})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}

func extractText(tag string, value json.RawMessage) (string, error) {
	var text string
	trimmed := strings.TrimSpace(string(value))
	if strings.HasPrefix(trimmed, `"`) {
		if err := json.Unmarshal(value, &text); err != nil {
			return "", err
		}
		return text, nil
	}
	if tag == TagText {
		return "", fmt.Errorf("expected a JSON string, got %s", summarize(trimmed))
	}
	return backend.ExtractText(tag, value)
}

func summarize(value string) string {
	if value == "" {
		return "nothing"
	}
	const limit = 40
	if runes := []rune(value); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return value
}
