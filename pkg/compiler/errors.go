package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDefinition matches every compile failure with errors.Is.
var ErrInvalidDefinition = errors.New("invalid workflow definition")

// Error is one structural problem found in an authored definition.
type Error struct {
	Reason   string `json:"reason"`
	StepID   string `json:"stepId,omitempty"`
	ActionID string `json:"actionId,omitempty"`
}

func (e *Error) Error() string {
	switch {
	case e.ActionID != "":
		return fmt.Sprintf("step %q action %q: %s", e.StepID, e.ActionID, e.Reason)
	case e.StepID != "":
		return fmt.Sprintf("step %q: %s", e.StepID, e.Reason)
	default:
		return e.Reason
	}
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidDefinition
}

// Errors is every problem found in one compilation, in discovery order.
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 1 {
		return "compile error: " + e[0].Error()
	}

	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("%d compile errors: %s", len(e), strings.Join(msgs, "; "))
}

func (e Errors) Is(target error) bool {
	return target == ErrInvalidDefinition
}

// AsErrors extracts the compile errors wrapped in err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}

	return nil, false
}
