package seed

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/inkscore/internal/domain/rules"
)

// scoreStep is the resolution of generated scores.
const scoreStep = 10

var firstNames = []string{"Ana", "Bruno", "Chiara", "Dmitri", "Elif", "Farah", "Goran", "Hana", "Ines", "Jonas", "Kenji", "Lucia"}

type contestantRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type judgeRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	YearsExperience int    `json:"years_experience"`
	Specialty       string `json:"specialty,omitempty"`
}

type evaluationRequest struct {
	JudgeID      string             `json:"judge_id"`
	ContestantID string             `json:"contestant_id"`
	Scores       map[string]float64 `json:"scores"`
}

// generator produces registration and score payloads. Names and emails carry
// a per-run tag so repeated runs never collide on email.
type generator struct {
	rnd   *rand.Rand
	run   string
	rules rules.Document
	cats  []string
}

func newGenerator(seed uint64, doc rules.Document, categories []string) *generator {
	return &generator{
		rnd:   rand.New(rand.NewPCG(seed, seed>>1|1)),
		run:   uuid.NewString()[:8],
		rules: doc,
		cats:  categories,
	}
}

func (g *generator) contestants(n int) []contestantRequest {
	out := make([]contestantRequest, n)
	for i := range out {
		out[i] = contestantRequest{
			Name:     fmt.Sprintf("%s %s-%03d", firstNames[i%len(firstNames)], g.run, i),
			Category: g.cats[i%len(g.cats)],
			Email:    fmt.Sprintf("contestant-%03d-%s@seed.example", i, g.run),
			Phone:    fmt.Sprintf("+1 555 %04d", i),
		}
	}
	return out
}

func (g *generator) judges(n int) []judgeRequest {
	out := make([]judgeRequest, n)
	for i := range out {
		out[i] = judgeRequest{
			Name:            fmt.Sprintf("Judge %s-%02d", g.run, i),
			Email:           fmt.Sprintf("judge-%02d-%s@seed.example", i, g.run),
			YearsExperience: 1 + g.rnd.IntN(30),
			Specialty:       g.cats[i%len(g.cats)],
		}
	}
	return out
}

// scores returns a value for every criterion of category, each in
// [1, max_score] at one decimal place.
func (g *generator) scores(category string) map[string]float64 {
	criteria := g.rules.Categories[category]
	top := int(g.rules.MaxScore * scoreStep)
	out := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		if top <= scoreStep {
			out[c] = g.rules.MaxScore
			continue
		}
		out[c] = float64(scoreStep+g.rnd.IntN(top-scoreStep+1)) / scoreStep
	}
	return out
}

// pick returns n distinct indexes below total.
func (g *generator) pick(n, total int) []int {
	if n > total {
		n = total
	}
	return g.rnd.Perm(total)[:n]
}
