// Package errors - Error handling for the detection pipeline.
//
// This package re-exports github.com/pkg/errors so callers get stack traces and
// wrapping from a single import, and defines the sentinel errors returned by the
// pipeline. Sentinels are matched with Is:
//
//	if errors.Is(err, errors.ErrMalformedOutput) {
//	    // the model output does not match the configured layout
//	}
package errors

import (
	pkgerrors "github.com/pkg/errors"
)

// Core error creation and wrapping.
var (
	New          = pkgerrors.New
	Errorf       = pkgerrors.Errorf
	Wrap         = pkgerrors.Wrap
	Wrapf        = pkgerrors.Wrapf
	WithStack    = pkgerrors.WithStack
	WithMessage  = pkgerrors.WithMessage
	WithMessagef = pkgerrors.WithMessagef
)

// Error inspection.
var (
	Is     = pkgerrors.Is
	As     = pkgerrors.As
	Unwrap = pkgerrors.Unwrap
	Cause  = pkgerrors.Cause
)

var (
	// ErrInvalidInput is returned for a nil or zero-area image and for bad configuration values.
	ErrInvalidInput = New("invalid input")
	// ErrInferenceFailure is returned when the inference engine fails to prepare or run.
	ErrInferenceFailure = New("inference failure")
	// ErrMalformedOutput is returned when the output buffer does not match the configured layout.
	ErrMalformedOutput = New("malformed output")
	// ErrNotInitialized is returned when a detector is used before it was initialized.
	ErrNotInitialized = New("detector not initialized")
	// ErrLoadFailure is returned when a model or the inference runtime cannot be loaded.
	ErrLoadFailure = New("load failure")
)

// Mark returns an error that keeps the message of err and additionally matches
// mark with Is. It returns nil when err is nil.
func Mark(err, mark error) error {
	if err == nil {
		return nil
	}
	return &marked{cause: err, mark: mark}
}

type marked struct {
	cause error
	mark  error
}

func (m *marked) Error() string { return m.cause.Error() }

func (m *marked) Unwrap() []error { return []error{m.cause, m.mark} }
