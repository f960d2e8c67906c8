package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	id, ok := RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", id)
	assert.NotNil(t, WithContext(ctx))
}

func TestNewRequestID(t *testing.T) {
	_, err := uuid.Parse(NewRequestID())
	assert.NoError(t, err)
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}
