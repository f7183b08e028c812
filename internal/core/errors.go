package core

import (
	"errors"
	"fmt"
)

var (
	ErrBackendUnavailable = errors.New("no printer backend available")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrManagerClosed      = errors.New("manager is closed")
)

// ValidationError rejects a request before any job is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// PrintError is the terminal error of a failed job.
type PrintError struct {
	Printer    string
	PaperWidth int
	Reason     string
	Err        error
}

func (e *PrintError) Error() string {
	return e.Reason
}

func (e *PrintError) Unwrap() error {
	return e.Err
}
