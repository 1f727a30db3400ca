package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// coerceToJSONBytes lets one strict JSON decoder serve both formats: files
// with a .yaml/.yml extension are decoded as YAML and re-marshaled to JSON,
// everything else is passed through untouched.
//
// Returns (jsonBytes, format, err) where format is "json" or "yaml".
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, "json", nil
	}

	// yaml/v3 decodes string-keyed mappings into map[string]any, which
	// json.Marshal handles directly; exotic non-string keys surface as a
	// marshal error below, which is fine for a config file.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
	}

	j, err := json.Marshal(doc)
	if err != nil {
		return nil, "yaml", fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, "yaml", nil
}
