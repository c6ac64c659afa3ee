// Package tokens generates unique HEC token values. The uniqueness check
// is injected so the generator stays independent of storage wiring.
package tokens

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// MaxAttempts bounds the uniqueness-retry loop. Generation fails closed
// rather than looping unbounded.
const MaxAttempts = 10

// ErrExhausted means no unused token value was found within the attempt
// budget.
var ErrExhausted = errors.New("failed to generate a unique token")

// Checker reports whether a candidate token value is already in use.
type Checker func(ctx context.Context, token string) (bool, error)

// Generator produces candidate token values.
type Generator func() string

// NewUUID is the default candidate generator.
func NewUUID() string {
	return uuid.New().String()
}

// GenerateUnique draws candidates from gen until one passes the checker or
// maxAttempts candidates have been rejected. A checker error aborts
// immediately; retrying against a failing index would mask the outage.
func GenerateUnique(ctx context.Context, gen Generator, exists Checker, maxAttempts int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := gen()
		used, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
