package keygen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func TestAllocateReturnsPrefixedKey(t *testing.T) {
	a := New("bill", WithBackOff(zeroBackOff))

	key, err := a.Allocate(context.Background(), func(ctx context.Context, key string) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "bill_"))
	assert.Len(t, key, len("bill_")+26) // ULID is 26 chars
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	a := New("lease", WithBackOff(zeroBackOff))

	var calls int
	key, err := a.Allocate(context.Background(), func(ctx context.Context, key string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Equal(t, 3, calls)
}

func TestAllocateExhaustsAfterBudget(t *testing.T) {
	a := New("pdc", WithAttempts(5), WithBackOff(zeroBackOff))

	var calls int
	_, err := a.Allocate(context.Background(), func(ctx context.Context, key string) (bool, error) {
		calls++
		return true, nil
	})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 5, calls)
}

func TestAllocateStopsOnLookupError(t *testing.T) {
	a := New("bill", WithBackOff(zeroBackOff))

	boom := errors.New("db down")
	var calls int
	_, err := a.Allocate(context.Background(), func(ctx context.Context, key string) (bool, error) {
		calls++
		return false, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestCandidatesAreUnique(t *testing.T) {
	a := New("", WithNow(func() time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	}))

	seen := map[string]bool{}
	for range 100 {
		key, err := a.Allocate(context.Background(), func(ctx context.Context, key string) (bool, error) {
			return seen[key], nil
		})
		require.NoError(t, err)
		require.False(t, seen[key])
		seen[key] = true
	}
}
