package kb

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type file struct {
	Categories []Category `yaml:"categories"`
}

// Default returns the built-in knowledge base.
func Default() (*KnowledgeBase, error) {
	return parse(defaultYAML)
}

// LoadFile reads a knowledge base from a YAML file. Category order in the
// file is preserved and becomes the detection order.
func LoadFile(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kb: read %s: %w", path, err)
	}
	k, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("kb: parse %s: %w", path, err)
	}
	return k, nil
}

func parse(data []byte) (*KnowledgeBase, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("kb: unmarshal: %w", err)
	}
	return New(f.Categories)
}
