package seed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/okian/inkscore/internal/domain/consolidation"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/types"
	"github.com/okian/inkscore/pkg/logger"
)

// verifyLeaderboard recomputes the ranking of admitted locally and checks
// that the served leaderboard orders this run's contestants the same way.
// Entries from other runs may interleave and the server may cap the
// length, so only the served prefix of this run's entries is compared.
func verifyLeaderboard(ctx context.Context, client *httpClient, admitted []model.Evaluation,
	contestants []model.Contestant, stats *Stats,
) error {
	expected := consolidation.Rank(consolidation.Consolidate(admitted))

	var served []types.Entry
	path := "/leaderboard?limit=" + strconv.Itoa(len(expected))
	if err := client.get(ctx, path, &served); err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	stats.LeaderboardEntries = len(served)

	ours := make(map[string]bool, len(contestants))
	for _, c := range contestants {
		ours[c.ID] = true
	}
	mine := make([]types.Entry, 0, len(served))
	for _, e := range served {
		if ours[e.ContestantID] {
			mine = append(mine, e)
		}
	}
	if len(expected) > 0 && len(mine) == 0 {
		return fmt.Errorf("%w: none of %d entries were served", ErrVerification, len(expected))
	}

	for i, got := range mine {
		if i >= len(expected) {
			return fmt.Errorf("%w: served %d entries for %d expected", ErrVerification, len(mine), len(expected))
		}
		if err := compareEntry(expected[i], got); err != nil {
			return fmt.Errorf("%w: position %d: %w", ErrVerification, i+1, err)
		}
	}
	stats.EntriesVerified = len(mine)
	logger.Get().Info(ctx, "leaderboard verified",
		logger.Int("verified", stats.EntriesVerified),
		logger.Int("expected", len(expected)),
	)
	return nil
}

func compareEntry(want, got types.Entry) error {
	switch {
	case want.ContestantID != got.ContestantID:
		return fmt.Errorf("contestant %s, want %s", got.ContestantID, want.ContestantID)
	case want.Category != got.Category:
		return fmt.Errorf("category %s, want %s", got.Category, want.Category)
	case want.AggregateScore != got.AggregateScore:
		return fmt.Errorf("aggregate %.2f, want %.2f", got.AggregateScore, want.AggregateScore)
	case want.AverageScore != got.AverageScore:
		return fmt.Errorf("average %.2f, want %.2f", got.AverageScore, want.AverageScore)
	case want.EvaluationCount != got.EvaluationCount:
		return fmt.Errorf("evaluation count %d, want %d", got.EvaluationCount, want.EvaluationCount)
	}
	return nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.EvaluationsSubmitted+stats.DuplicatesRejected) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.String("contestants", humanize.Comma(int64(stats.ContestantsRegistered))),
		logger.String("judges", humanize.Comma(int64(stats.JudgesRegistered))),
		logger.String("evaluationsAdmitted", humanize.Comma(int64(stats.EvaluationsAdmitted))),
		logger.String("duplicatesRejected", humanize.Comma(int64(stats.DuplicatesRejected))),
		logger.String("entriesVerified", humanize.Comma(int64(stats.EntriesVerified))),
		logger.String("duration", stats.Duration.String()),
		logger.String("evaluationsPerSecond", humanize.FtoaWithDigits(perSecond, 1)),
	)
}
