package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"condense/internal/services"
)

// LoadParams reads sampling parameters from a JSON or YAML (.yaml/.yml) file.
// An empty path returns nil.
func LoadParams(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "inference", "load params", fmt.Sprintf("Read %s", path), err)
	}
	var params map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &params)
	default:
		err = json.Unmarshal(data, &params)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfig, "inference", "load params", fmt.Sprintf("Parse %s (expected an object)", path), err)
	}
	return params, nil
}
