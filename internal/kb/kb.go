// Package kb holds the static issue knowledge base: category keyword lists
// and scripted question/option/response trees. A KnowledgeBase is built once
// at startup and never mutated; category order is part of the detection
// contract, so categories live in a slice, not a map.
package kb

import (
	"fmt"
	"strings"
)

// Branch is one scripted response in a category's solution tree, keyed by
// the option text that leads to it.
type Branch struct {
	Message string   `yaml:"message"`
	Options []string `yaml:"options"`
}

// Category is one issue category: keywords for free-text detection plus the
// scripted solution tree shown once the category is known.
type Category struct {
	Name      string            `yaml:"name"`
	Keywords  []string          `yaml:"keywords"`
	Question  string            `yaml:"question"`
	Options   []string          `yaml:"options"`
	Responses map[string]Branch `yaml:"responses"`
}

// KnowledgeBase is the ordered, read-only set of categories.
type KnowledgeBase struct {
	categories []Category
	byName     map[string]int
}

// New validates the categories and builds a KnowledgeBase.
func New(categories []Category) (*KnowledgeBase, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("kb: no categories defined")
	}
	byName := make(map[string]int, len(categories))
	for i, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("kb: categories[%d]: name is required", i)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("kb: duplicate category %q", c.Name)
		}
		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("kb: category %q: keywords are required", c.Name)
		}
		if c.Question == "" {
			return nil, fmt.Errorf("kb: category %q: question is required", c.Name)
		}
		byName[c.Name] = i
	}
	return &KnowledgeBase{categories: categories, byName: byName}, nil
}

// Detect scans the categories in order and returns the first whose keyword
// list has a substring hit against the lowercased message. The first match
// in category order is authoritative; there is no scoring.
func (k *KnowledgeBase) Detect(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, c := range k.categories {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Category returns the named category.
func (k *KnowledgeBase) Category(name string) (Category, bool) {
	i, ok := k.byName[name]
	if !ok {
		return Category{}, false
	}
	return k.categories[i], true
}

// Branch returns the scripted branch reached by clicking option within the
// named category.
func (k *KnowledgeBase) Branch(category, option string) (Branch, bool) {
	c, ok := k.Category(category)
	if !ok {
		return Branch{}, false
	}
	b, ok := c.Responses[option]
	return b, ok
}

// Names returns the category names in detection order. The returned slice
// is a copy; the knowledge base itself stays immutable.
func (k *KnowledgeBase) Names() []string {
	names := make([]string, len(k.categories))
	for i, c := range k.categories {
		names[i] = c.Name
	}
	return names
}
