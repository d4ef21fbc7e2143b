package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/pkg/metrics"
)

// Entity labels used in metrics.
const (
	entityContestant = "contestant"
	entityJudge      = "judge"
	entityEvaluation = "evaluation"
)

// MemoryStore is the in-memory Store. Local state is authoritative; durable
// storage only ever receives copies through the Persister.
type MemoryStore struct {
	mu sync.RWMutex

	contestants      map[string]model.Contestant
	contestantOrder  []string
	contestantEmails map[string]string

	judges      map[string]model.Judge
	judgeOrder  []string
	judgeEmails map[string]string

	evaluations     map[string]model.Evaluation
	evaluationOrder []string

	version   uint64
	persister Persister
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	s.clearLocked()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FoldEmail normalises an email for uniqueness checks.
func FoldEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func (s *MemoryStore) clearLocked() {
	s.contestants = map[string]model.Contestant{}
	s.contestantOrder = nil
	s.contestantEmails = map[string]string{}
	s.judges = map[string]model.Judge{}
	s.judgeOrder = nil
	s.judgeEmails = map[string]string{}
	s.evaluations = map[string]model.Evaluation{}
	s.evaluationOrder = nil
}

func (s *MemoryStore) AddContestant(_ context.Context, c model.Contestant) error {
	const op = "store.add_contestant"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contestants[c.ID]; ok {
		return model.Reject(op, model.ErrDuplicateEntity, "contestant id %s", c.ID)
	}
	email := FoldEmail(c.Email)
	if _, ok := s.contestantEmails[email]; ok {
		return model.Reject(op, model.ErrDuplicateEntity, "contestant email %s is already registered", c.Email)
	}
	s.contestants[c.ID] = c
	s.contestantOrder = append(s.contestantOrder, c.ID)
	s.contestantEmails[email] = c.ID
	s.commitLocked()
	return nil
}

func (s *MemoryStore) AddJudge(_ context.Context, j model.Judge) error {
	const op = "store.add_judge"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.judges[j.ID]; ok {
		return model.Reject(op, model.ErrDuplicateEntity, "judge id %s", j.ID)
	}
	email := FoldEmail(j.Email)
	if _, ok := s.judgeEmails[email]; ok {
		return model.Reject(op, model.ErrDuplicateEntity, "judge email %s is already registered", j.Email)
	}
	s.judges[j.ID] = j
	s.judgeOrder = append(s.judgeOrder, j.ID)
	s.judgeEmails[email] = j.ID
	s.commitLocked()
	return nil
}

func (s *MemoryStore) AddEvaluation(_ context.Context, e model.Evaluation) error {
	const op = "store.add_evaluation"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.judges[e.JudgeID]; !ok {
		return model.Reject(op, model.ErrUnknownReference, "judge %s", e.JudgeID)
	}
	if _, ok := s.contestants[e.ContestantID]; !ok {
		return model.Reject(op, model.ErrUnknownReference, "contestant %s", e.ContestantID)
	}
	if _, ok := s.evaluations[e.ID]; ok {
		return model.Reject(op, model.ErrDuplicateEntity, "evaluation id %s", e.ID)
	}
	s.evaluations[e.ID] = e.Clone()
	s.evaluationOrder = append(s.evaluationOrder, e.ID)
	s.commitLocked()
	return nil
}

func (s *MemoryStore) Contestant(_ context.Context, id string) (model.Contestant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contestants[id]
	if !ok {
		return model.Contestant{}, model.Reject("store.contestant", model.ErrNotFound, "contestant %s", id)
	}
	return c, nil
}

func (s *MemoryStore) Judge(_ context.Context, id string) (model.Judge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.judges[id]
	if !ok {
		return model.Judge{}, model.Reject("store.judge", model.ErrNotFound, "judge %s", id)
	}
	return j, nil
}

func (s *MemoryStore) Evaluation(_ context.Context, id string) (model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evaluations[id]
	if !ok {
		return model.Evaluation{}, model.Reject("store.evaluation", model.ErrNotFound, "evaluation %s", id)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) Contestants(_ context.Context) []model.Contestant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Contestant, 0, len(s.contestantOrder))
	for _, id := range s.contestantOrder {
		out = append(out, s.contestants[id])
	}
	return out
}

func (s *MemoryStore) Judges(_ context.Context) []model.Judge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Judge, 0, len(s.judgeOrder))
	for _, id := range s.judgeOrder {
		out = append(out, s.judges[id])
	}
	return out
}

func (s *MemoryStore) Evaluations(_ context.Context, f EvaluationFilter) []model.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Evaluation, 0, len(s.evaluationOrder))
	for _, id := range s.evaluationOrder {
		e := s.evaluations[id]
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.JudgeID != "" && e.JudgeID != f.JudgeID {
			continue
		}
		if f.ContestantID != "" && e.ContestantID != f.ContestantID {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

func (s *MemoryStore) DeleteContestant(_ context.Context, id string) ([]model.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contestants[id]
	if !ok {
		return nil, model.Reject("store.delete_contestant", model.ErrNotFound, "contestant %s", id)
	}
	delete(s.contestants, id)
	delete(s.contestantEmails, FoldEmail(c.Email))
	s.contestantOrder = slices.DeleteFunc(s.contestantOrder, func(v string) bool { return v == id })
	removed := s.removeEvaluationsLocked(func(e model.Evaluation) bool { return e.ContestantID == id })

	metrics.RecordDeletion(entityContestant, 1)
	metrics.RecordDeletion(entityEvaluation, len(removed))
	s.commitLocked()
	return removed, nil
}

func (s *MemoryStore) DeleteJudge(_ context.Context, id string) ([]model.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.judges[id]
	if !ok {
		return nil, model.Reject("store.delete_judge", model.ErrNotFound, "judge %s", id)
	}
	delete(s.judges, id)
	delete(s.judgeEmails, FoldEmail(j.Email))
	s.judgeOrder = slices.DeleteFunc(s.judgeOrder, func(v string) bool { return v == id })
	removed := s.removeEvaluationsLocked(func(e model.Evaluation) bool { return e.JudgeID == id })

	metrics.RecordDeletion(entityJudge, 1)
	metrics.RecordDeletion(entityEvaluation, len(removed))
	s.commitLocked()
	return removed, nil
}

func (s *MemoryStore) DeleteEvaluation(_ context.Context, id string) (model.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.evaluations[id]
	if !ok {
		return model.Evaluation{}, model.Reject("store.delete_evaluation", model.ErrNotFound, "evaluation %s", id)
	}
	delete(s.evaluations, id)
	s.evaluationOrder = slices.DeleteFunc(s.evaluationOrder, func(v string) bool { return v == id })

	metrics.RecordDeletion(entityEvaluation, 1)
	s.commitLocked()
	return e, nil
}

// removeEvaluationsLocked drops matching evaluations and returns them in
// insertion order.
func (s *MemoryStore) removeEvaluationsLocked(match func(model.Evaluation) bool) []model.Evaluation {
	var removed []model.Evaluation
	kept := s.evaluationOrder[:0]
	for _, id := range s.evaluationOrder {
		e := s.evaluations[id]
		if match(e) {
			removed = append(removed, e)
			delete(s.evaluations, id)
			continue
		}
		kept = append(kept, id)
	}
	s.evaluationOrder = kept
	return removed
}

func (s *MemoryStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	metrics.RecordReset()
	s.commitLocked()
}

func (s *MemoryStore) Snapshot(_ context.Context) (model.State, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked(), s.version
}

func (s *MemoryStore) Restore(_ context.Context, state model.State) (RestoreReport, error) {
	next := NewMemoryStore()

	for _, c := range state.Contestants {
		email := FoldEmail(c.Email)
		if _, ok := next.contestants[c.ID]; ok || c.ID == "" {
			return RestoreReport{}, fmt.Errorf("%w: contestant id %q repeated or empty", ErrInvalidState, c.ID)
		}
		if _, ok := next.contestantEmails[email]; ok {
			return RestoreReport{}, fmt.Errorf("%w: contestant email %q repeated", ErrInvalidState, c.Email)
		}
		next.contestants[c.ID] = c
		next.contestantOrder = append(next.contestantOrder, c.ID)
		next.contestantEmails[email] = c.ID
	}
	for _, j := range state.Judges {
		email := FoldEmail(j.Email)
		if _, ok := next.judges[j.ID]; ok || j.ID == "" {
			return RestoreReport{}, fmt.Errorf("%w: judge id %q repeated or empty", ErrInvalidState, j.ID)
		}
		if _, ok := next.judgeEmails[email]; ok {
			return RestoreReport{}, fmt.Errorf("%w: judge email %q repeated", ErrInvalidState, j.Email)
		}
		next.judges[j.ID] = j
		next.judgeOrder = append(next.judgeOrder, j.ID)
		next.judgeEmails[email] = j.ID
	}

	var report RestoreReport
	occupied := make(map[model.Key]bool, len(state.Evaluations))
	for _, e := range state.Evaluations {
		_, judgeOK := next.judges[e.JudgeID]
		_, contestantOK := next.contestants[e.ContestantID]
		_, idTaken := next.evaluations[e.ID]
		if !judgeOK || !contestantOK || idTaken || occupied[e.Key()] {
			report.DroppedEvaluations++
			continue
		}
		occupied[e.Key()] = true
		next.evaluations[e.ID] = e.Clone()
		next.evaluationOrder = append(next.evaluationOrder, e.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contestants, s.contestantOrder, s.contestantEmails = next.contestants, next.contestantOrder, next.contestantEmails
	s.judges, s.judgeOrder, s.judgeEmails = next.judges, next.judgeOrder, next.judgeEmails
	s.evaluations, s.evaluationOrder = next.evaluations, next.evaluationOrder
	s.updateMetricsLocked()

	report.Counts = s.countsLocked()
	return report, nil
}

func (s *MemoryStore) Counts(_ context.Context) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *MemoryStore) countsLocked() Counts {
	return Counts{Contestants: len(s.contestants), Judges: len(s.judges), Evaluations: len(s.evaluations)}
}

func (s *MemoryStore) stateLocked() model.State {
	st := model.State{
		Contestants: make([]model.Contestant, 0, len(s.contestantOrder)),
		Judges:      make([]model.Judge, 0, len(s.judgeOrder)),
		Evaluations: make([]model.Evaluation, 0, len(s.evaluationOrder)),
	}
	for _, id := range s.contestantOrder {
		st.Contestants = append(st.Contestants, s.contestants[id])
	}
	for _, id := range s.judgeOrder {
		st.Judges = append(st.Judges, s.judges[id])
	}
	for _, id := range s.evaluationOrder {
		st.Evaluations = append(st.Evaluations, s.evaluations[id].Clone())
	}
	return st
}

// commitLocked bumps the version and hands the new state to the persister.
// Called with the write lock held so versions follow mutation order.
func (s *MemoryStore) commitLocked() {
	s.version++
	s.updateMetricsLocked()
	if s.persister != nil {
		s.persister.Enqueue(s.version, s.stateLocked())
	}
}

func (s *MemoryStore) updateMetricsLocked() {
	metrics.UpdateEntityCount(entityContestant, len(s.contestants))
	metrics.UpdateEntityCount(entityJudge, len(s.judges))
	metrics.UpdateEntityCount(entityEvaluation, len(s.evaluations))
}
