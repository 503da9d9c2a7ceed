package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetMissAndSet(t *testing.T) {
	c := NewTTL[string, int]()

	_, ok := c.Get("k")
	require.False(t, ok)

	c.Set("k", 42, time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTL[string, bool]().WithClock(func() time.Time { return now })

	c.Set("has_records:cpf", true, 5*time.Minute)

	v, ok := c.Get("has_records:cpf")
	require.True(t, ok)
	require.True(t, v)

	now = now.Add(5*time.Minute + time.Second)
	_, ok = c.Get("has_records:cpf")
	require.False(t, ok)
}

func TestGetOrFillReadRepair(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTL[string, int]().WithClock(func() time.Time { return now })

	fills := 0
	fill := func(context.Context) (int, error) {
		fills++
		return fills * 10, nil
	}

	v, err := c.GetOrFill(context.Background(), "k", time.Minute, fill)
	require.NoError(t, err)
	require.Equal(t, 10, v)

	// Cached: fill must not run again.
	v, err = c.GetOrFill(context.Background(), "k", time.Minute, fill)
	require.NoError(t, err)
	require.Equal(t, 10, v)
	require.Equal(t, 1, fills)

	// Stale entry triggers a fresh fetch and overwrite.
	now = now.Add(2 * time.Minute)
	v, err = c.GetOrFill(context.Background(), "k", time.Minute, fill)
	require.NoError(t, err)
	require.Equal(t, 20, v)
}

func TestGetOrFillErrorNotCached(t *testing.T) {
	c := NewTTL[string, int]()
	boom := errors.New("upstream down")

	_, err := c.GetOrFill(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrFill(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)
}
