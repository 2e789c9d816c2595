package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTraceID(t *testing.T) {
	t.Run("explicit trace id", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "trace-123")
		assert.Equal(t, "trace-123", GetTraceID(ctx))
	})

	t.Run("generated when empty", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "")
		assert.NotEmpty(t, GetTraceID(ctx))
	})

	t.Run("absent", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})
}
