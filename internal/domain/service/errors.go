package service

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientHistory   = errors.New("insufficient history")
	ErrFitFailure            = errors.New("model fit failed")
	ErrVolatilityUnavailable = errors.New("volatility unavailable")
	ErrInvalidConfiguration  = errors.New("invalid configuration")
	ErrNoForecasters         = errors.New("no price forecaster produced a result")
)

// InsufficientHistoryError is fatal for a run: no partial output is produced.
type InsufficientHistoryError struct {
	Component string
	Need      int
	Have      int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history: need %d rows, have %d", e.Component, e.Need, e.Have)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// FitError is recovered by the combiner and turned into a degradation.
type FitError struct {
	Component string
	Err       error
}

func NewFitError(component string, format string, args ...any) *FitError {
	return &FitError{Component: component, Err: fmt.Errorf(format, args...)}
}

func (e *FitError) Error() string {
	if e.Err == nil {
		return e.Component + ": model fit failed"
	}
	return fmt.Sprintf("%s: model fit failed: %v", e.Component, e.Err)
}

func (e *FitError) Is(target error) bool { return target == ErrFitFailure }

func (e *FitError) Unwrap() error { return e.Err }

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }
