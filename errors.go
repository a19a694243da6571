package remotequery

import (
	"fmt"

	"github.com/friendsofgo/errors"
)

var (
	// ErrUnsupportedExpression is matched by every UnsupportedExpressionError.
	ErrUnsupportedExpression = errors.New("unsupported expression")

	// ErrArgumentOutOfRange is matched by every ArgumentOutOfRangeError.
	ErrArgumentOutOfRange = errors.New("argument out of range")

	// ErrSequenceEmpty is returned by First and Last when nothing matched.
	ErrSequenceEmpty = errors.New("sequence contains no matching element")

	// ErrMaxRecordsExamined is returned when an evaluation would examine more
	// records than the configured safeguard allows.
	ErrMaxRecordsExamined = errors.New("maximum number of examined records exceeded")
)

// UnsupportedExpressionError is returned when a composed query cannot be
// executed, e.g. a filter placed after Skip/Take or after an opaque operation.
type UnsupportedExpressionError struct {
	Kind   string
	Reason string
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported expression: %s", e.Kind)
	}
	return fmt.Sprintf("unsupported expression: %s: %s", e.Kind, e.Reason)
}

func (e *UnsupportedExpressionError) Is(target error) bool {
	return target == ErrUnsupportedExpression
}

// ArgumentOutOfRangeError is returned when a Skip literal is negative.
type ArgumentOutOfRangeError struct {
	Param string
	Value int
}

func (e *ArgumentOutOfRangeError) Error() string {
	return fmt.Sprintf("argument %s is out of range: %d must be non-negative", e.Param, e.Value)
}

func (e *ArgumentOutOfRangeError) Is(target error) bool {
	return target == ErrArgumentOutOfRange
}
