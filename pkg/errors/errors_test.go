package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	// Transient failures are worth another fetch cycle.
	assert.True(t, NewNetwork("mercadolibre", "timeout", nil).IsRetryable())
	assert.True(t, NewStore("commit failed", nil).IsRetryable())

	// Blocked or malformed sources will fail again the same way.
	assert.False(t, NewChallenge("vivanuncios").IsRetryable())
	assert.False(t, NewParsing("pulppo", "bad document", nil).IsRetryable())
	assert.False(t, NewRateLimit("inmuebles24", 5*time.Minute).IsRetryable())
	assert.False(t, NewValidation("query", "bad bounds").IsRetryable())
}

func TestIsType(t *testing.T) {
	err := NewChallenge("vivanuncios")
	assert.True(t, IsType(err, ErrorTypeChallenge))
	assert.False(t, IsType(err, ErrorTypeNetwork))

	// Wrapped pipeline errors are still recognized.
	wrapped := fmt.Errorf("scrape failed: %w", NewRateLimit("alpha", time.Minute))
	assert.True(t, IsType(wrapped, ErrorTypeRateLimit))

	assert.False(t, IsType(errors.New("plain"), ErrorTypeNetwork))
	assert.False(t, IsType(nil, ErrorTypeNetwork))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetwork("alpha", "fetching page", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "alpha")
	assert.Contains(t, err.Error(), "connection refused")
}
