package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlogit/atlomy/internal/errkind"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Options{BaseDelay: time.Millisecond}, nil, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errkind.New(errkind.Transient, "timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Options{MaxAttempts: 2, BaseDelay: time.Millisecond}, nil, func(ctx context.Context) error {
		attempts++
		return errkind.New(errkind.Transient, "timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, errkind.Is(err, errkind.Transient))
}

func TestDoDoesNotRetryNonTransient(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Options{BaseDelay: time.Millisecond}, nil, func(ctx context.Context) error {
		attempts++
		return errkind.New(errkind.Validation, "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Options{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil, func(ctx context.Context) error {
		return errkind.New(errkind.Transient, "timeout")
	})
	require.Error(t, err)
}
