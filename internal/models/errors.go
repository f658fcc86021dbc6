package models

import (
	"errors"
	"fmt"
)

// ErrEmptySymbol is returned when a request carries no symbol
var ErrEmptySymbol = errors.New("symbol is required")

// NoDataError is returned when a symbol has no price history
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	if e.Symbol == "" {
		return "no price data"
	}
	return fmt.Sprintf("no price data for %s", e.Symbol)
}

// InsufficientHistoryError reports that the series is too short for the
// long moving average. It is informational; the analysis still proceeds.
type InsufficientHistoryError struct {
	Bars     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: %d bars, %d required for trend", e.Bars, e.Required)
}

// TransportError wraps a failed call to an external service
type TransportError struct {
	Source string // "yahoo", "eodhd", "gemini"
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a model response with no recognised field lines
type MalformedResponseError struct {
	Lines int
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: no recognised fields in %d lines", e.Lines)
}
