package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasProfile maps canonical report fields to extra header substrings.
// It supplements the built-in header heuristics for renamed exports, e.g.:
//
//	term: ["query", "suchbegriff"]
//	spend: ["cost (eur)"]
//
// Keys must be canonical field names understood by the normalizer.
type AliasProfile map[string][]string

// LoadAliases parses a YAML alias profile from disk.
func LoadAliases(path string) (AliasProfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read alias file: %w", err)
	}
	var p AliasProfile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("config: parse alias file %s: %w", path, err)
	}
	return p, nil
}
