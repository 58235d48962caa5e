package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "polygon/internal/errors"
)

func TestNewConfig_Valid(t *testing.T) {
	cfg, err := NewConfig("127.0.0.1:9000", 200*time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Target().Port)
	assert.Equal(t, 200*time.Millisecond, cfg.Timeout())
	assert.Equal(t, 3, cfg.MaxAttempts())
	assert.True(t, cfg.FilterSource())
	assert.False(t, cfg.retryable(perrors.ErrClosed))
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		timeout  time.Duration
		attempts int
		field    string
	}{
		{"zero timeout", "127.0.0.1:9000", 0, 3, "timeout"},
		{"negative timeout", "127.0.0.1:9000", -time.Second, 3, "timeout"},
		{"zero attempts", "127.0.0.1:9000", time.Second, 0, "attempts"},
		{"no port", "127.0.0.1", time.Second, 1, "dest"},
		{"port zero", "127.0.0.1:0", time.Second, 1, "dest"},
		{"port too big", "127.0.0.1:70000", time.Second, 1, "dest"},
		{"named port", "127.0.0.1:http", time.Second, 1, "dest"},
		{"empty", "", time.Second, 1, "dest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.target, tt.timeout, tt.attempts)
			var ce *perrors.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestNewConfig_Options(t *testing.T) {
	cfg, err := NewConfig("127.0.0.1:9000", time.Second, 1,
		WithSourceFilter(false),
		WithSendRetry(func(err error) bool { return err == perrors.ErrClosed }),
	)
	require.NoError(t, err)
	assert.False(t, cfg.FilterSource())
	assert.True(t, cfg.retryable(perrors.ErrClosed))
	assert.False(t, cfg.retryable(perrors.ErrTimeout))
}

func TestConfig_WithTarget(t *testing.T) {
	cfg, err := NewConfig("127.0.0.1:9000", time.Second, 2)
	require.NoError(t, err)

	moved, err := cfg.WithTarget("127.0.0.1:9001")
	require.NoError(t, err)
	assert.Equal(t, 9001, moved.Target().Port)
	assert.Equal(t, 9000, cfg.Target().Port, "original config must not change")
	assert.Equal(t, 2, moved.MaxAttempts())

	_, err = cfg.WithTarget("nowhere")
	assert.Error(t, err)
}
