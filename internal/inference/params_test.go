package inference_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"condense/internal/inference"
	"condense/internal/services"
)

func TestLoadParamsJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "params.json")
	if err := os.WriteFile(jsonPath, []byte(`{"temperature":0.3,"options":{"num_ctx":4096}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	params, err := inference.LoadParams(jsonPath)
	if err != nil {
		t.Fatalf("LoadParams json: %v", err)
	}
	if params["temperature"] != 0.3 {
		t.Fatalf("unexpected params %v", params)
	}

	yamlPath := filepath.Join(dir, "params.yml")
	if err := os.WriteFile(yamlPath, []byte("temperature: 0.3\noptions:\n  num_ctx: 4096\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	params, err = inference.LoadParams(yamlPath)
	if err != nil {
		t.Fatalf("LoadParams yaml: %v", err)
	}
	options, ok := params["options"].(map[string]any)
	if !ok || options["num_ctx"] != 4096 {
		t.Fatalf("unexpected nested yaml params %v", params)
	}
}

func TestLoadParamsErrors(t *testing.T) {
	if params, err := inference.LoadParams(""); err != nil || params != nil {
		t.Fatalf("expected empty path to be a no-op, got %v %v", params, err)
	}
	dir := t.TempDir()
	if _, err := inference.LoadParams(filepath.Join(dir, "missing.json")); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[1,2,3]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := inference.LoadParams(bad); !errors.Is(err, services.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
