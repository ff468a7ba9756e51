// Package tracking generates human-readable shipment tracking numbers and
// drives the bounded conflict-retry protocol against the remote uniqueness
// constraint.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/apierr"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

const (
	// DefaultPrefix is the tracking number prefix.
	DefaultPrefix = "CAR"
	// DefaultDigits is the width of the numeric suffix.
	DefaultDigits = 11
	// DefaultMaxAttempts bounds the conflict-retry loop.
	DefaultMaxAttempts = 5
)

// ErrExhaustedRetries marks the distinct failure returned when every
// candidate identifier collided. Callers match it with errors.Is and show
// a "try again later" message instead of a generic validation error.
var ErrExhaustedRetries = errors.New("exhausted unique tracking number attempts")

// ExhaustedRetriesError reports how many candidates were rejected before
// the generator gave up. It matches ErrExhaustedRetries under errors.Is
// and unwraps to the last conflict.
type ExhaustedRetriesError struct {
	Attempts int
	lastErr  error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%v after %d attempts", ErrExhaustedRetries, e.Attempts)
}

func (e *ExhaustedRetriesError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.lastErr
}

// Generator produces candidate tracking numbers: a fixed prefix followed
// by a zero-padded random numeric suffix of fixed width. The suffix range
// makes collisions rare but not impossible; uniqueness is enforced only by
// the remote store.
type Generator struct {
	prefix string
	digits int
	intN   func(n uint64) uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces the random source. Tests use this for determinism.
func WithRand(intN func(n uint64) uint64) Option {
	return func(g *Generator) {
		g.intN = intN
	}
}

// NewGenerator builds a Generator. Empty prefix and non-positive digits
// fall back to the defaults.
func NewGenerator(prefix string, digits int, opts ...Option) *Generator {
	g := &Generator{
		prefix: strings.TrimSpace(prefix),
		digits: digits,
		intN:   rand.N[uint64],
	}
	if g.prefix == "" {
		g.prefix = DefaultPrefix
	}
	if g.digits <= 0 {
		g.digits = DefaultDigits
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh candidate tracking number.
func (g *Generator) Next() string {
	limit := uint64(1)
	for i := 0; i < g.digits; i++ {
		limit *= 10
	}
	return fmt.Sprintf("%s%0*d", g.prefix, g.digits, g.intN(limit))
}

// Creator submits create requests. Both the resource client and the
// mutation coordinator satisfy it.
type Creator interface {
	Create(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error)
}

// CreateWithUniqueID generates a candidate identifier, submits the create
// request built from it, and on a uniqueness conflict regenerates and
// resubmits. Any non-conflict error propagates immediately. After
// maxAttempts consecutive conflicts it fails with ErrExhaustedRetries.
func CreateWithUniqueID(
	ctx context.Context,
	creator Creator,
	kind types.Kind,
	gen *Generator,
	buildPayload func(candidate string) types.Payload,
	maxAttempts int,
) (types.Resource, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := gen.Next()

		resource, err := creator.Create(ctx, kind, buildPayload(candidate))
		if err == nil {
			return resource, nil
		}
		if !apierr.IsConflict(err) {
			return types.Resource{}, err
		}
		lastErr = err
	}

	return types.Resource{}, &ExhaustedRetriesError{Attempts: maxAttempts, lastErr: lastErr}
}
