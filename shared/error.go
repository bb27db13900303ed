package shared

import (
	"errors"
	"fmt"
)

type ErrorSource int

const (
	ErrorSourceStore ErrorSource = iota
	ErrorSourceTracker
	ErrorSourceSystem
	ErrorSourceUser
)

func (s ErrorSource) String() string {
	switch s {
	case ErrorSourceStore:
		return "store"
	case ErrorSourceTracker:
		return "tracker"
	case ErrorSourceSystem:
		return "system"
	case ErrorSourceUser:
		return "user"
	default:
		return "unknown"
	}
}

type TractionError struct {
	Source  ErrorSource
	Message string
	Err     error
}

func Errorf(source ErrorSource, format string, a ...any) *TractionError {
	return &TractionError{
		Source:  source,
		Message: fmt.Sprintf(format, a...),
	}
}

func Wrap(source ErrorSource, err error, format string, a ...any) *TractionError {
	return &TractionError{
		Source:  source,
		Message: fmt.Sprintf(format, a...),
		Err:     err,
	}
}

func (e *TractionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

func (e *TractionError) Unwrap() error {
	return e.Err
}

func (e *TractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func (e *TractionError) As(target any) bool {
	return errors.As(e.Err, target)
}
