package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponseClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
		want       Kind
	}{
		{"conflict status", http.StatusConflict, "tracking number already exists", KindConflict},
		{"not found", http.StatusNotFound, "shipment not found", KindNotFound},
		{"validation", http.StatusBadRequest, "weightKg must be positive", KindValidation},
		{"duplicate key marker on 400", http.StatusBadRequest, "duplicate key: tracking number already exists", KindConflict},
		{"duplicate key marker case insensitive", http.StatusUnprocessableEntity, "Duplicate Key violation", KindConflict},
		{"server error", http.StatusInternalServerError, "boom", KindInternal},
		{"bad gateway", http.StatusBadGateway, "upstream down", KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := FromResponse(tc.statusCode, tc.message)
			assert.Equal(t, tc.want, apiErr.Kind)
			assert.Equal(t, tc.statusCode, apiErr.StatusCode)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestUnreachableWrapsTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	apiErr := Unreachable(cause)

	assert.True(t, IsUnreachable(apiErr))
	assert.ErrorIs(t, apiErr, cause)
	assert.Contains(t, apiErr.Error(), "unreachable")
}

func TestIsKindMatchesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("create shipment: %w", New(KindConflict, http.StatusConflict, "duplicate key"))

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsUnreachable(wrapped))
	assert.False(t, IsConflict(errors.New("plain error")))
	assert.False(t, IsConflict(nil))
}

func TestMessageFor(t *testing.T) {
	apiErr := New(KindValidation, http.StatusBadRequest, "name is required")
	assert.Equal(t, "name is required", MessageFor(apiErr))

	wrapped := fmt.Errorf("submit: %w", apiErr)
	assert.Equal(t, "name is required", MessageFor(wrapped))

	plain := errors.New("something broke")
	assert.Equal(t, "something broke", MessageFor(plain))

	assert.Equal(t, "", MessageFor(nil))
}

func TestErrorStringIncludesStatus(t *testing.T) {
	apiErr := FromResponse(http.StatusConflict, "duplicate key")
	require.Contains(t, apiErr.Error(), "409")
	require.Contains(t, apiErr.Error(), "conflict")
}
