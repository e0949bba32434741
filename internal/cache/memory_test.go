package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestMemory_TTLBoundary(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	c := NewMemory(clock.Now)

	require.NoError(t, c.Set(ctx, "network_analysis:agent-1", []byte("v"), DefaultTTL))

	clock.now = clock.now.Add(DefaultTTL - time.Millisecond)
	value, err := c.Get(ctx, "network_analysis:agent-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	clock.now = clock.now.Add(time.Millisecond)
	_, err = c.Get(ctx, "network_analysis:agent-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory(nil)
	_, err := c.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemory_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewMemory(clock.Now)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	clock.now = clock.now.Add(4 * time.Minute)
	_, err := c.Get(ctx, "k")
	assert.NoError(t, err)

	clock.now = clock.now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemory_DeleteContaining(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(nil)

	require.NoError(t, c.Set(ctx, TopInfluencersKey("agent-1", 10, "all"), []byte("a"), DefaultTTL))
	require.NoError(t, c.Set(ctx, NetworkAnalysisKey("agent-1"), []byte("b"), DefaultTTL))
	require.NoError(t, c.Set(ctx, GratitudeHistoryKey("agent-2", 10), []byte("c"), DefaultTTL))

	deleted, err := c.DeleteContaining(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = c.Get(ctx, GratitudeHistoryKey("agent-2", 10))
	assert.NoError(t, err)
	_, err = c.Get(ctx, NetworkAnalysisKey("agent-1"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(nil)

	type payload struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}

	require.NoError(t, SetJSON(ctx, c, "p", payload{Name: "Park", Score: 7.5}, DefaultTTL))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "p", &got))
	assert.Equal(t, payload{Name: "Park", Score: 7.5}, got)

	err := GetJSON(ctx, Noop{}, "p", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "top_influencers:agent-1:10:all", TopInfluencersKey("agent-1", 10, "all"))
	assert.Equal(t, "network_analysis:agent-1", NetworkAnalysisKey("agent-1"))
	assert.Equal(t, "gratitude_history:agent-1:5", GratitudeHistoryKey("agent-1", 5))
}

func TestMemory_SetSweepsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	c := NewMemory(clock.Now)

	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Set(ctx, TopInfluencersKey("agent-1", i+1, "all"), []byte("v"), DefaultTTL))
	}
	require.NoError(t, c.Set(ctx, "long", []byte("v"), 2*time.Hour))
	assert.Equal(t, 1001, c.Len())

	clock.now = clock.now.Add(time.Hour)
	require.NoError(t, c.Set(ctx, "network_analysis:agent-1", []byte("v"), DefaultTTL))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "long")
	assert.NoError(t, err)
}
