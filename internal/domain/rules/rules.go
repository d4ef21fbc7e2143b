// Package rules holds the contest rule set: which categories exist, which
// criteria each category is scored on and the highest score a criterion
// may receive.
package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxScore is the per-criterion ceiling when none is configured.
const DefaultMaxScore = 10.0

// Built-in categories and criteria.
var (
	defaultCategories = []string{"realism", "traditional", "blackwork", "color", "japanese"}
	defaultCriteria   = []string{"technique", "creativity", "composition", "color", "difficulty"}
)

// Set is an immutable rule set. It is safe for concurrent use.
type Set struct {
	criteria map[string][]string
	names    []string
	maxScore float64
}

// Document is the YAML and JSON shape of a rule set.
type Document struct {
	Categories map[string][]string `yaml:"categories" json:"categories"`
	MaxScore   float64             `yaml:"max_score" json:"max_score"`
}

// Default returns the built-in rule set; every category uses the same criteria.
func Default() *Set {
	doc := Document{Categories: make(map[string][]string, len(defaultCategories)), MaxScore: DefaultMaxScore}
	for _, c := range defaultCategories {
		doc.Categories[c] = slices.Clone(defaultCriteria)
	}
	s, err := New(doc)
	if err != nil {
		panic(err) // built-in rules are static
	}
	return s
}

// New validates doc and builds a Set. A zero MaxScore means DefaultMaxScore.
func New(doc Document) (*Set, error) {
	if len(doc.Categories) == 0 {
		return nil, ErrNoCategories
	}
	if doc.MaxScore < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaxScore, doc.MaxScore)
	}
	s := &Set{criteria: make(map[string][]string, len(doc.Categories)), maxScore: doc.MaxScore}
	if s.maxScore == 0 {
		s.maxScore = DefaultMaxScore
	}
	for name, list := range doc.Categories {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoCriteria, name)
		}
		seen := make(map[string]bool, len(list))
		crit := make([]string, 0, len(list))
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" {
				return nil, fmt.Errorf("%w: criterion in %s", ErrEmptyName, name)
			}
			if seen[c] {
				return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateCriterion, c, name)
			}
			seen[c] = true
			crit = append(crit, c)
		}
		s.criteria[name] = crit
		s.names = append(s.names, name)
	}
	slices.Sort(s.names)
	return s, nil
}

// Parse reads a YAML rule set. Unknown fields are rejected.
func Parse(r io.Reader) (*Set, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return New(doc)
}

// LoadFile parses the YAML rule set at path.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Categories returns category names in ascending order.
func (s *Set) Categories() []string { return slices.Clone(s.names) }

// HasCategory reports whether category is defined.
func (s *Set) HasCategory(category string) bool {
	_, ok := s.criteria[category]
	return ok
}

// Criteria returns the criteria a category is scored on.
func (s *Set) Criteria(category string) ([]string, bool) {
	c, ok := s.criteria[category]
	if !ok {
		return nil, false
	}
	return slices.Clone(c), true
}

// MaxScore is the inclusive ceiling for a criterion score.
func (s *Set) MaxScore() float64 { return s.maxScore }

// Document returns a copy of the rule set in its serialisable form.
func (s *Set) Document() Document {
	doc := Document{Categories: make(map[string][]string, len(s.criteria)), MaxScore: s.maxScore}
	for k, v := range s.criteria {
		doc.Categories[k] = slices.Clone(v)
	}
	return doc
}
