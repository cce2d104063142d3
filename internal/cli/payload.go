package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodePayloadFile reads a JSON or YAML document into the generic payload
// shape the canonical hasher accepts. The format is chosen by extension;
// anything that is not .yaml/.yml is treated as JSON.
//
// JSON numbers decode as json.Number so integers above 2^53 keep their
// exact value through canonicalization.
func decodePayloadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse JSON %s: %w", path, err)
		}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: top-level document must be an object, got %T", path, doc)
	}
	return obj, nil
}
