package stock_coverage

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidRecord        = errors.New("invalid stock record")
)

// ConfigurationError is returned before any computation when Options are unusable.
type ConfigurationError struct {
	Field string
	Value int
}

func (e *ConfigurationError) Error() string {
	rule := "must be positive"
	if e.Field == "chunkSize" {
		rule = "must not be negative"
	}
	return fmt.Sprintf("invalid configuration: %s %s, got %d", e.Field, rule, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ValidationError identifies a stock record that failed validation.
type ValidationError struct {
	Index  int    `json:"index"`
	Key    string `json:"key"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stock record %d (%s): field %s failed %s", e.Index, e.Key, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRecord
}
