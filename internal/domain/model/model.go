// Package model contains domain models passed between layers.
package model

import (
	"maps"
	"slices"
	"time"
)

// Contestant is an entrant being judged. Immutable once registered.
type Contestant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Judge assigns scores to contestants.
type Judge struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	YearsExperience int       `json:"years_experience"`
	Specialty       string    `json:"specialty,omitempty"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// Evaluation is one judge's scored submission for one contestant in one
// category. Category is copied from the contestant when the evaluation is
// admitted and never follows later edits.
type Evaluation struct {
	ID             string             `json:"id"`
	JudgeID        string             `json:"judge_id"`
	JudgeName      string             `json:"judge_name"`
	ContestantID   string             `json:"contestant_id"`
	ContestantName string             `json:"contestant_name"`
	Category       string             `json:"category"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	TotalScore     float64            `json:"total_score"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Key identifies the (judge, contestant, category) triple.
type Key struct {
	JudgeID      string
	ContestantID string
	Category     string
}

// Key returns the triple the evaluation occupies.
func (e Evaluation) Key() Key {
	return Key{JudgeID: e.JudgeID, ContestantID: e.ContestantID, Category: e.Category}
}

// Clone returns a copy that shares no map with e.
func (e Evaluation) Clone() Evaluation {
	e.CriteriaScores = maps.Clone(e.CriteriaScores)
	return e
}

// State is the complete persisted content of the store.
type State struct {
	Contestants []Contestant `json:"contestants"`
	Judges      []Judge      `json:"judges"`
	Evaluations []Evaluation `json:"evaluations"`
}

// Empty reports whether all three collections are empty.
func (s State) Empty() bool {
	return len(s.Contestants) == 0 && len(s.Judges) == 0 && len(s.Evaluations) == 0
}

// Clone deep-copies the state. Nil collections become empty slices so the
// encoded form is stable.
func (s State) Clone() State {
	out := State{
		Contestants: slices.Clone(s.Contestants),
		Judges:      slices.Clone(s.Judges),
		Evaluations: make([]Evaluation, len(s.Evaluations)),
	}
	if out.Contestants == nil {
		out.Contestants = []Contestant{}
	}
	if out.Judges == nil {
		out.Judges = []Judge{}
	}
	for i, e := range s.Evaluations {
		out.Evaluations[i] = e.Clone()
	}
	return out
}
