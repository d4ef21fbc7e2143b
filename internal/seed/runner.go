package seed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/rules"
	"github.com/okian/inkscore/pkg/logger"
)

// Run executes a complete seed run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	c := cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting inkscore seed run",
		logger.String("baseURL", c.BaseURL),
		logger.Int("contestants", c.Contestants),
		logger.Int("judges", c.Judges),
		logger.Int("duplicates", c.Duplicates),
		logger.Int("workers", c.Workers),
		logger.Any("seed", c.Seed),
	)

	client := newHTTPClient(c.BaseURL, c.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}
	if c.Reset {
		if _, err := client.post(ctx, "/reset", nil, http.StatusOK, nil); err != nil {
			return stats, fmt.Errorf("reset: %w", err)
		}
	}

	var doc rules.Document
	if err := client.get(ctx, "/rules", &doc); err != nil {
		return stats, fmt.Errorf("fetch rules: %w", err)
	}
	set, err := rules.New(doc)
	if err != nil {
		return stats, fmt.Errorf("served rules: %w", err)
	}
	gen := newGenerator(c.Seed, set.Document(), set.Categories())

	contestants, err := registerAll[contestantRequest, model.Contestant](ctx, client, c.Workers, "/contestants",
		gen.contestants(c.Contestants), func(cr contestantRequest) string { return cr.Email })
	if err != nil {
		return stats, fmt.Errorf("register contestants: %w", err)
	}
	stats.ContestantsRegistered = len(contestants)

	judges, err := registerAll[judgeRequest, model.Judge](ctx, client, c.Workers, "/judges",
		gen.judges(c.Judges), func(jr judgeRequest) string { return jr.Email })
	if err != nil {
		return stats, fmt.Errorf("register judges: %w", err)
	}
	stats.JudgesRegistered = len(judges)

	admitted, err := submitEvaluations(ctx, client, c, gen, contestants, judges, stats)
	if err != nil {
		return stats, err
	}
	if err := submitDuplicates(ctx, client, c, gen, admitted, stats); err != nil {
		return stats, err
	}
	if err := verifyLeaderboard(ctx, client, admitted, contestants, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *httpClient) error {
	if _, err := client.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// registerAll posts every request concurrently and returns the created
// records in request order.
func registerAll[Req any, Out any](ctx context.Context, client *httpClient, workers int, path string, reqs []Req, key func(Req) string) ([]Out, error) {
	out := make([]Out, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			if _, err := client.post(gctx, path, req, http.StatusCreated, &out[i]); err != nil {
				return fmt.Errorf("%s: %w", key(req), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "registered", logger.String("path", path), logger.Int("count", len(out)))
	return out, nil
}

// submitEvaluations has every judge score every contestant once.
func submitEvaluations(ctx context.Context, client *httpClient, c Config, gen *generator,
	contestants []model.Contestant, judges []model.Judge, stats *Stats,
) ([]model.Evaluation, error) {
	reqs := make([]evaluationRequest, 0, len(contestants)*len(judges))
	for _, j := range judges {
		for _, ct := range contestants {
			reqs = append(reqs, evaluationRequest{JudgeID: j.ID, ContestantID: ct.ID, Scores: gen.scores(ct.Category)})
		}
	}

	var (
		mu       sync.Mutex
		admitted = make([]model.Evaluation, 0, len(reqs))
		failed   atomic.Int64
		done     atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)
	for _, req := range reqs {
		g.Go(func() error {
			var e model.Evaluation
			_, err := client.post(gctx, "/evaluations", req, http.StatusCreated, &e)
			n := done.Add(1)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				logger.Get().Warn(gctx, "evaluation rejected", logger.Error(err))
				return nil
			}
			mu.Lock()
			admitted = append(admitted, e)
			mu.Unlock()
			if c.Verbose {
				logger.Get().Debug(gctx, "evaluation admitted",
					logger.String("id", e.ID),
					logger.Float64("total", e.TotalScore),
					logger.Int64("progress", n),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("submit evaluations: %w", err)
	}

	stats.EvaluationsSubmitted = len(reqs)
	stats.EvaluationsAdmitted = len(admitted)
	stats.EvaluationsFailed = int(failed.Load())
	logger.Get().Info(ctx, "evaluations submitted",
		logger.Int("admitted", stats.EvaluationsAdmitted),
		logger.Int("failed", stats.EvaluationsFailed),
	)
	if stats.EvaluationsFailed > 0 {
		return nil, fmt.Errorf("%w: %d evaluations were rejected", ErrUnexpected, stats.EvaluationsFailed)
	}
	return admitted, nil
}

// submitDuplicates resubmits admitted triples, each of which must be
// refused with 409 Conflict.
func submitDuplicates(ctx context.Context, client *httpClient, c Config, gen *generator,
	admitted []model.Evaluation, stats *Stats,
) error {
	picks := gen.pick(c.Duplicates, len(admitted))
	reqs := make([]evaluationRequest, len(picks))
	for i, idx := range picks {
		e := admitted[idx]
		reqs[i] = evaluationRequest{JudgeID: e.JudgeID, ContestantID: e.ContestantID, Scores: gen.scores(e.Category)}
	}

	var rejected, accepted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)
	for _, req := range reqs {
		g.Go(func() error {
			status, err := client.post(gctx, "/evaluations", req, http.StatusConflict, nil)
			switch {
			case err == nil:
				rejected.Add(1)
			case status == http.StatusCreated:
				accepted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("submit duplicates: %w", err)
	}

	stats.DuplicatesRejected = int(rejected.Load())
	stats.DuplicatesAccepted = int(accepted.Load())
	if stats.DuplicatesAccepted > 0 {
		return fmt.Errorf("%w: %d duplicate evaluations were admitted", ErrVerification, stats.DuplicatesAccepted)
	}
	return nil
}
