package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/section"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/metrics"
)

// nearDuplicateDistance is the largest edit distance between folded names
// that triggers a similar-name warning.
const nearDuplicateDistance = 2

var phonePattern = regexp.MustCompile(`^[0-9 +()\-]{7,20}$`)

// ContestantInput is a contestant registration request.
type ContestantInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,contact_phone"`
}

// JudgeInput is a judge registration request.
type JudgeInput struct {
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email"`
	YearsExperience int    `json:"years_experience" validate:"gte=1"`
	Specialty       string `json:"specialty"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("contact_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError turns validator output into an ErrValidation rejection
// naming every failing field.
func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.Reject(op, model.ErrValidation, "%v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return model.Reject(op, model.ErrValidation, "invalid %s", strings.Join(fields, ", "))
}

func foldName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// RegisterContestant validates in and stores a new contestant. A name close
// to one already registered in the same category is accepted with a warning.
func (s *Service) RegisterContestant(ctx context.Context, in ContestantInput) (model.Contestant, error) {
	const op = "service.register_contestant"
	ctx, span := s.span(ctx, op, attribute.String("category", in.Category))
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validate.Struct(in); err != nil {
		return model.Contestant{}, s.fail(ctx, span, section.Registration, op, validationError(op, err))
	}
	if !s.rules.HasCategory(in.Category) {
		err := model.Reject(op, model.ErrValidation, "unknown category %q", in.Category)
		return model.Contestant{}, s.fail(ctx, span, section.Registration, op, err)
	}

	similar := s.similarContestant(ctx, in.Name, in.Category)

	c := model.Contestant{
		ID:           s.newID(),
		Name:         in.Name,
		Category:     in.Category,
		Email:        in.Email,
		Phone:        in.Phone,
		RegisteredAt: s.now(),
	}
	if err := s.store.AddContestant(ctx, c); err != nil {
		return model.Contestant{}, s.fail(ctx, span, section.Registration, op, err)
	}

	metrics.RecordRegistration("contestant")
	s.logger.Info(ctx, "contestant registered",
		logger.String("id", c.ID),
		logger.String("category", c.Category),
	)
	s.notify(ctx, section.Registration, notify.Success,
		fmt.Sprintf("contestant %s registered in %s", c.Name, c.Category))
	if similar != "" {
		s.notify(ctx, section.Registration, notify.Warning,
			fmt.Sprintf("contestant %s looks like already registered %s in %s", c.Name, similar, c.Category))
	}
	return c, nil
}

// similarContestant returns the name of a contestant in category whose
// folded name is within nearDuplicateDistance of name, or "".
func (s *Service) similarContestant(ctx context.Context, name, category string) string {
	folded := foldName(name)
	for _, c := range s.store.Contestants(ctx) {
		if c.Category != category {
			continue
		}
		if levenshtein.ComputeDistance(folded, foldName(c.Name)) <= nearDuplicateDistance {
			return c.Name
		}
	}
	return ""
}

// RegisterJudge validates in and stores a new judge. Specialty, when set,
// must be a known category.
func (s *Service) RegisterJudge(ctx context.Context, in JudgeInput) (model.Judge, error) {
	const op = "service.register_judge"
	ctx, span := s.span(ctx, op)
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Specialty = strings.TrimSpace(in.Specialty)

	if err := s.validate.Struct(in); err != nil {
		return model.Judge{}, s.fail(ctx, span, section.Registration, op, validationError(op, err))
	}
	if in.Specialty != "" && !s.rules.HasCategory(in.Specialty) {
		err := model.Reject(op, model.ErrValidation, "unknown specialty %q", in.Specialty)
		return model.Judge{}, s.fail(ctx, span, section.Registration, op, err)
	}

	j := model.Judge{
		ID:              s.newID(),
		Name:            in.Name,
		Email:           in.Email,
		YearsExperience: in.YearsExperience,
		Specialty:       in.Specialty,
		RegisteredAt:    s.now(),
	}
	if err := s.store.AddJudge(ctx, j); err != nil {
		return model.Judge{}, s.fail(ctx, span, section.Registration, op, err)
	}

	metrics.RecordRegistration("judge")
	s.logger.Info(ctx, "judge registered", logger.String("id", j.ID))
	s.notify(ctx, section.Registration, notify.Success, fmt.Sprintf("judge %s registered", j.Name))
	return j, nil
}

// Contestants lists contestants in registration order.
func (s *Service) Contestants(ctx context.Context) []model.Contestant {
	return s.store.Contestants(ctx)
}

// Contestant returns one contestant or model.ErrNotFound.
func (s *Service) Contestant(ctx context.Context, id string) (model.Contestant, error) {
	return s.store.Contestant(ctx, id)
}

// Judges lists judges in registration order.
func (s *Service) Judges(ctx context.Context) []model.Judge {
	return s.store.Judges(ctx)
}

// Judge returns one judge or model.ErrNotFound.
func (s *Service) Judge(ctx context.Context, id string) (model.Judge, error) {
	return s.store.Judge(ctx, id)
}
