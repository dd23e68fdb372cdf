package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedQuestionType is returned for a tag in neither marking set.
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	// ErrMalformedContext is returned when an answer variant does not fit the question type.
	ErrMalformedContext = errors.New("malformed marking context")
)

func Unsupported(t QuestionType) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedQuestionType, t)
}

// Malformed reports which field had the wrong variant.
func Malformed(t QuestionType, field string, want string, got AnswerPayload) error {
	return fmt.Errorf("%w: %s.%s must be %s, got %s", ErrMalformedContext, t, field, want, VariantName(got))
}
