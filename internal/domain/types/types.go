// Package types contains read shapes shared by the engine and the adapters.
package types

import "time"

// Entry is one leaderboard row: a (contestant, category) pair with its
// summed score and the per-evaluation average shown next to it.
type Entry struct {
	Rank            int       `json:"rank"`
	ContestantID    string    `json:"contestant_id"`
	ContestantName  string    `json:"contestant_name"`
	Category        string    `json:"category"`
	AggregateScore  float64   `json:"aggregate_score"`
	AverageScore    float64   `json:"average_score"`
	EvaluationCount int       `json:"evaluation_count"`
	Judges          []string  `json:"judges"`
	LastEvaluatedAt time.Time `json:"last_evaluated_at"`
}

// Summary holds dashboard statistics over a set of entries.
type Summary struct {
	OverallAverage           float64 `json:"overall_average"`
	TopScore                 float64 `json:"top_score"`
	TotalConsolidatedEntries int     `json:"total_consolidated_entries"`
	DistinctCategoryCount    int     `json:"distinct_category_count"`
}
