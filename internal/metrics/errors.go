package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOriginal is returned by metrics that divide by the plaintext length.
	ErrEmptyOriginal = errors.New("original string is empty")
	// ErrEmptyCiphertext is returned by metrics that divide by the ciphertext length.
	ErrEmptyCiphertext = errors.New("encrypted string is empty")
	// ErrNoRandomSource is returned when the randomness metric has no source.
	ErrNoRandomSource = errors.New("no random source configured")
)

// ComputationError wraps the failure of a single metric.
type ComputationError struct {
	Metric string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("metric %s: %v", e.Metric, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
