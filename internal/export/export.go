// Package export writes the ranked leaderboard as a table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/inkscore/internal/domain/types"
)

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// ErrUnknownFormat is returned for formats other than csv and json.
var ErrUnknownFormat = errors.New("unknown export format")

// Header is the column order of a tabular export.
var Header = []string{"rank", "contestant", "category", "aggregate_score", "average_score", "evaluation_count", "judges"}

// Row is one exported line.
type Row struct {
	Rank            int      `json:"rank"`
	Contestant      string   `json:"contestant"`
	Category        string   `json:"category"`
	AggregateScore  float64  `json:"aggregate_score"`
	AverageScore    float64  `json:"average_score"`
	EvaluationCount int      `json:"evaluation_count"`
	Judges          []string `json:"judges"`
}

// ParseFormat accepts csv or json; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == JSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Rows converts leaderboard entries, which are already sorted by
// descending aggregate, into export rows.
func Rows(entries []types.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Rank:            e.Rank,
			Contestant:      e.ContestantName,
			Category:        e.Category,
			AggregateScore:  e.AggregateScore,
			AverageScore:    e.AverageScore,
			EvaluationCount: e.EvaluationCount,
			Judges:          e.Judges,
		}
	}
	return rows
}

// Write encodes entries to w in format f.
func Write(w io.Writer, f Format, entries []types.Entry) error {
	switch f {
	case CSV:
		return writeCSV(w, Rows(entries))
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Rows(entries))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Rank),
			r.Contestant,
			r.Category,
			strconv.FormatFloat(r.AggregateScore, 'f', 2, 64),
			strconv.FormatFloat(r.AverageScore, 'f', 2, 64),
			strconv.Itoa(r.EvaluationCount),
			strings.Join(r.Judges, "; "),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
