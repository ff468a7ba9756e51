package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/apierr"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

type mockCreator struct {
	createFn func(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error)
}

func (m *mockCreator) Create(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
	if m.createFn != nil {
		return m.createFn(ctx, kind, payload)
	}
	return types.Resource{}, nil
}

func conflictErr() error {
	return apierr.FromResponse(http.StatusConflict, "duplicate key: tracking number already exists")
}

func TestNextFormat(t *testing.T) {
	gen := NewGenerator("", 0)

	pattern := regexp.MustCompile(`^CAR\d{11}$`)
	for i := 0; i < 50; i++ {
		candidate := gen.Next()
		assert.True(t, pattern.MatchString(candidate), "candidate %q does not match CAR + 11 digits", candidate)
	}
}

func TestNextZeroPadsSmallValues(t *testing.T) {
	gen := NewGenerator("CAR", 11, WithRand(func(n uint64) uint64 { return 42 }))
	assert.Equal(t, "CAR00000000042", gen.Next())
}

func TestNewGeneratorCustomPrefixAndWidth(t *testing.T) {
	gen := NewGenerator("  PKG  ", 6, WithRand(func(n uint64) uint64 {
		assert.Equal(t, uint64(1000000), n)
		return 123
	}))
	assert.Equal(t, "PKG000123", gen.Next())
}

func TestCreateWithUniqueIDFirstAttemptSucceeds(t *testing.T) {
	gen := NewGenerator("CAR", 11, WithRand(func(uint64) uint64 { return 7 }))

	var calls int
	creator := &mockCreator{
		createFn: func(_ context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
			calls++
			assert.Equal(t, types.KindShipment, kind)
			return types.Resource{ID: "s-1", Kind: kind, Payload: payload.Clone()}, nil
		},
	}

	resource, err := CreateWithUniqueID(context.Background(), creator, types.KindShipment, gen,
		func(candidate string) types.Payload {
			return types.Payload{"trackingNumber": candidate, "weightKg": 12.5}
		}, DefaultMaxAttempts)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "CAR00000000007", resource.Payload["trackingNumber"])
}

func TestCreateWithUniqueIDRetriesOnConflict(t *testing.T) {
	var seq uint64
	gen := NewGenerator("CAR", 11, WithRand(func(uint64) uint64 {
		seq++
		return seq
	}))

	var attempts []string
	creator := &mockCreator{
		createFn: func(_ context.Context, _ types.Kind, payload types.Payload) (types.Resource, error) {
			candidate := payload["trackingNumber"].(string)
			attempts = append(attempts, candidate)
			if len(attempts) < 3 {
				return types.Resource{}, conflictErr()
			}
			return types.Resource{ID: "s-1", Kind: types.KindShipment, Payload: payload.Clone()}, nil
		},
	}

	resource, err := CreateWithUniqueID(context.Background(), creator, types.KindShipment, gen,
		func(candidate string) types.Payload {
			return types.Payload{"trackingNumber": candidate, "weightKg": 3.0}
		}, 5)
	require.NoError(t, err)

	// Each attempt carries a fresh candidate; the rest of the payload is untouched.
	require.Len(t, attempts, 3)
	assert.Equal(t, []string{"CAR00000000001", "CAR00000000002", "CAR00000000003"}, attempts)
	assert.Equal(t, "CAR00000000003", resource.Payload["trackingNumber"])
	assert.Equal(t, 3.0, resource.Payload["weightKg"])
}

func TestCreateWithUniqueIDExhaustsRetries(t *testing.T) {
	gen := NewGenerator("CAR", 11)

	var calls int
	creator := &mockCreator{
		createFn: func(_ context.Context, _ types.Kind, _ types.Payload) (types.Resource, error) {
			calls++
			return types.Resource{}, conflictErr()
		},
	}

	_, err := CreateWithUniqueID(context.Background(), creator, types.KindShipment, gen,
		func(candidate string) types.Payload {
			return types.Payload{"trackingNumber": candidate}
		}, 5)
	require.Error(t, err)

	assert.Equal(t, 5, calls)
	assert.ErrorIs(t, err, ErrExhaustedRetries)

	var exhausted *ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.True(t, apierr.IsConflict(errors.Unwrap(exhausted)), "should unwrap to the last conflict")
}

func TestCreateWithUniqueIDNonConflictPropagatesImmediately(t *testing.T) {
	gen := NewGenerator("CAR", 11)

	var calls int
	creator := &mockCreator{
		createFn: func(_ context.Context, _ types.Kind, _ types.Payload) (types.Resource, error) {
			calls++
			return types.Resource{}, apierr.FromResponse(http.StatusBadRequest, "weightKg must be positive")
		},
	}

	_, err := CreateWithUniqueID(context.Background(), creator, types.KindShipment, gen,
		func(candidate string) types.Payload {
			return types.Payload{"trackingNumber": candidate}
		}, 5)
	require.Error(t, err)

	assert.Equal(t, 1, calls, "validation errors must not be retried")
	assert.False(t, errors.Is(err, ErrExhaustedRetries))
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
}

func TestCreateWithUniqueIDDefaultsMaxAttempts(t *testing.T) {
	gen := NewGenerator("CAR", 11)

	var calls int
	creator := &mockCreator{
		createFn: func(_ context.Context, _ types.Kind, _ types.Payload) (types.Resource, error) {
			calls++
			return types.Resource{}, conflictErr()
		},
	}

	_, err := CreateWithUniqueID(context.Background(), creator, types.KindShipment, gen,
		func(candidate string) types.Payload {
			return types.Payload{"trackingNumber": candidate}
		}, 0)
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, calls)
}

func TestExhaustedRetriesErrorMessage(t *testing.T) {
	err := &ExhaustedRetriesError{Attempts: 5}
	assert.Equal(t, fmt.Sprintf("%v after 5 attempts", ErrExhaustedRetries), err.Error())
}
