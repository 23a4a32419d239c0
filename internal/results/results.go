// Package results reads and writes the per-run results artifact: a JSON object
// keyed by chunk file name whose values are either the generated text or the
// raw backend response object.
package results

import (
	"encoding/json"
	"fmt"
	"os"

	"condense/internal/fileutil"
	"condense/internal/services"
)

// Status records whether a chunk produced usable text.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Result is the outcome of one chunk.
type Result struct {
	SourceID string
	Text     string
	Raw      json.RawMessage
	Status   Status
}

// Write stores results atomically at path, replacing any previous artifact.
// With raw set, each value is the backend's response object instead of the text.
// Every result must be StatusOK; an incomplete artifact is never written.
func Write(path string, items []Result, raw bool) error {
	entries := make(map[string]any, len(items))
	for _, item := range items {
		if item.SourceID == "" {
			return services.Wrap(services.ErrData, "results", "write", "Result without source id", nil)
		}
		if item.Status != StatusOK {
			return services.Wrap(services.ErrData, "results", "write", fmt.Sprintf("Result %s did not succeed", item.SourceID), nil)
		}
		if _, dup := entries[item.SourceID]; dup {
			return services.Wrap(services.ErrData, "results", "write", fmt.Sprintf("Duplicate source id %s", item.SourceID), nil)
		}
		if raw {
			if len(item.Raw) == 0 || !json.Valid(item.Raw) {
				return services.Wrap(services.ErrData, "results", "write", fmt.Sprintf("Result %s has no raw response", item.SourceID), nil)
			}
			entries[item.SourceID] = item.Raw
			continue
		}
		entries[item.SourceID] = item.Text
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrData, "results", "encode", "Encode results artifact", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "results", "write", fmt.Sprintf("Write %s", path), err)
	}
	return nil
}

// Read loads an artifact as source id to undecoded value.
func Read(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "results", "read", fmt.Sprintf("Read %s", path), err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, services.Wrap(services.ErrData, "results", "read", fmt.Sprintf("%s is not a JSON object", path), err)
	}
	if entries == nil {
		return nil, services.Wrap(services.ErrData, "results", "read", fmt.Sprintf("%s is not a JSON object", path), nil)
	}
	return entries, nil
}
