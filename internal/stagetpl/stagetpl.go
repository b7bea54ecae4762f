// Package stagetpl loads the ordered stage list new runs start with.
package stagetpl

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTemplate []byte

type Template struct {
	Stages []string `yaml:"stages"`
}

// Default returns the built-in production line.
func Default() Template {
	t, err := Parse(defaultTemplate)
	if err != nil {
		panic(fmt.Sprintf("stagetpl: embedded default: %v", err))
	}
	return t
}

// Load reads a template from path, or returns Default when path is empty.
func Load(path string) (Template, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read stage template: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a template: at least one stage, no blank
// or duplicate names.
func Parse(data []byte) (Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("parse stage template: %w", err)
	}
	if len(t.Stages) == 0 {
		return Template{}, errors.New("stage template has no stages")
	}
	seen := make(map[string]bool, len(t.Stages))
	for i, name := range t.Stages {
		name = strings.TrimSpace(name)
		if name == "" {
			return Template{}, fmt.Errorf("stage %d has no name", i+1)
		}
		if seen[strings.ToLower(name)] {
			return Template{}, fmt.Errorf("stage %q listed twice", name)
		}
		seen[strings.ToLower(name)] = true
		t.Stages[i] = name
	}
	return t, nil
}
