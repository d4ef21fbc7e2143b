package rules

import "errors"

// Rule set validation errors.
var (
	ErrNoCategories       = errors.New("rule set has no categories")
	ErrNoCriteria         = errors.New("category has no criteria")
	ErrEmptyName          = errors.New("empty name")
	ErrDuplicateCriterion = errors.New("duplicate criterion")
	ErrInvalidMaxScore    = errors.New("max_score must be positive")
	ErrParse              = errors.New("parse rules")
)
