package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/inkscore/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// Error is an API failure tagged with the handler operation that raised it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err with kind and op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with op, keeping its own kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest, "bad_request"
	}
	reason := model.Reason(err)
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrIncompleteCriteria),
		errors.Is(err, model.ErrInvalidScore):
		return http.StatusBadRequest, reason
	case errors.Is(err, model.ErrUnknownReference),
		errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, reason
	case errors.Is(err, model.ErrDuplicateEvaluation),
		errors.Is(err, model.ErrDuplicateEntity):
		return http.StatusConflict, reason
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
