package guestbook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

var validate = validator.New()

// submission mirrors SubmitRequest after trimming; validator counts runes for strings.
type submission struct {
	Username string `validate:"required,min=2,max=20"`
	Message  string `validate:"required,min=3,max=280"`
}

// ValidationError lists every violated rule, not just the first one.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Normalize trims both fields. Everything downstream works on the trimmed form.
func Normalize(req SubmitRequest) SubmitRequest {
	return SubmitRequest{
		Username: strings.TrimSpace(req.Username),
		Message:  strings.TrimSpace(req.Message),
	}
}

// Validate checks the trimmed request against the length bounds and returns a
// *ValidationError holding all problems, or nil.
func Validate(req SubmitRequest) error {
	req = Normalize(req)
	err := validate.Struct(submission{Username: req.Username, Message: req.Message})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate submission: %w", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
