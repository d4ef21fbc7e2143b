// Package section enumerates the application's functional areas. Every
// operation exposed by an adapter belongs to exactly one section.
package section

import (
	"errors"
	"fmt"
	"strings"
)

// Section is a closed enumeration; the zero value is invalid.
type Section uint8

// Known sections.
const (
	Registration Section = iota + 1
	Evaluation
	Results
	Administration
)

// ErrUnknown is returned by Parse for names outside the enumeration.
var ErrUnknown = errors.New("unknown section")

// All returns every section in display order.
func All() []Section {
	return []Section{Registration, Evaluation, Results, Administration}
}

// String returns the lowercase name used in URLs and logs.
func (s Section) String() string {
	switch s {
	case Registration:
		return "registration"
	case Evaluation:
		return "evaluation"
	case Results:
		return "results"
	case Administration:
		return "administration"
	default:
		return fmt.Sprintf("section(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the known sections.
func (s Section) Valid() bool {
	switch s {
	case Registration, Evaluation, Results, Administration:
		return true
	default:
		return false
	}
}

// Title is the heading shown on the status page.
func (s Section) Title() string {
	switch s {
	case Registration:
		return "Registration"
	case Evaluation:
		return "Evaluation"
	case Results:
		return "Results"
	case Administration:
		return "Administration"
	default:
		return ""
	}
}

// Parse resolves a name (case-insensitive) to a section.
func Parse(name string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "registration":
		return Registration, nil
	case "evaluation":
		return Evaluation, nil
	case "results":
		return Results, nil
	case "administration":
		return Administration, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Section) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Section) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
