package explicit

import (
	"errors"
	"fmt"
)

var (
	// ErrActionDisabled is returned when stepping with an action the state does not enable
	ErrActionDisabled = errors.New("action not enabled")
	// ErrUnknownState is returned when stepping from a state that is not part of the model
	ErrUnknownState = errors.New("unknown state")
	// ErrNoGroundTruth is returned when the model checker output holds no result
	ErrNoGroundTruth = errors.New("no ground truth value found")
)

// FormatError reports a malformed or inconsistent explicit model file.
// Line is 0 when the problem is not tied to a single line.
type FormatError struct {
	File string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

func formatErrorf(file string, line int, format string, args ...interface{}) *FormatError {
	return &FormatError{
		File: file,
		Line: line,
		Msg:  fmt.Sprintf(format, args...),
	}
}
