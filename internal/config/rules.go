package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules tunes the parse filters and match heuristics without a
// rebuild. Empty fields mean "use the built-in defaults" downstream.
type Rules struct {
	// View lines whose resource id contains one of these are dropped
	// during geometry parsing.
	FilterIDs []string `yaml:"filter_ids"`

	// View lines whose class equals one of these are dropped during
	// geometry parsing.
	FilterClasses []string `yaml:"filter_classes"`

	// Widget class families considered similar when scoring matches,
	// e.g. text: [TextView, EditText].
	ClassFamilies map[string][]string `yaml:"class_families"`
}

// LoadRules reads a rules file. A missing file is not an error: the
// zero Rules value falls through to the built-in defaults.
func LoadRules(path string) (Rules, error) {
	var rules Rules
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return rules, fmt.Errorf("read rules file: %w", err)
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}
