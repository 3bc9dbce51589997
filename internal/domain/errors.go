package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for recoverable per-intent failures. The market drops
// intents that fail with one of these and the round continues.
var (
	ErrInvalidOrder      = errors.New("invalid_order")
	ErrInsufficientCash  = errors.New("insufficient_cash")
	ErrInsufficientUnits = errors.New("insufficient_units")
	ErrUnknownInstrument = errors.New("unknown_instrument")
	ErrUnknownAgent      = errors.New("unknown_agent")
	ErrOrderNotFound     = errors.New("order_not_found")
)

// ConfigError is a fatal initialization failure: an unknown instrument
// reference, an out-of-range inflation parameter, a non-positive initial
// price. It names the offending entity.
type ConfigError struct {
	Entity string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %q: %s", e.Entity, e.Reason)
}

// StateError is a fatal call-site failure: an operation requested on a
// market whose configured rounds are exhausted, or a round that detected
// structural corruption (e.g. a drawn inflation rate that would drive a
// price to zero). It carries the round number and the offending entity.
type StateError struct {
	Round  int
	Entity string
	Reason string
}

func (e *StateError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("round %d: %s", e.Round, e.Reason)
	}
	return fmt.Sprintf("round %d: %q: %s", e.Round, e.Entity, e.Reason)
}
