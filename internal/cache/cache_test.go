package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTripAndExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	var out map[string]float64
	hit, err := m.Get(ctx, "weather:abc", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, m.Set(ctx, "weather:abc", map[string]float64{"temp": 12.5}, time.Minute))

	hit, err = m.Get(ctx, "weather:abc", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 12.5, out["temp"])

	now = now.Add(time.Minute)
	hit, err = m.Get(ctx, "weather:abc", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory()
	now := time.Unix(0, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	now = now.Add(24 * 365 * time.Hour)

	var out string
	hit, err := m.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out)
}

func TestMemory_UnmarshalError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", "text", 0))

	var out int
	_, err := m.Get(ctx, "k", &out)
	assert.Error(t, err)
}
