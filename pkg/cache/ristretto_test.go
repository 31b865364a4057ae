package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	logger := zap.NewNop()
	c, err := NewRistrettoCache(DefaultRistrettoConfig(logger))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rc, ok := c.(*RistrettoCache)
	require.True(t, ok)
	return rc
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("balance:kalshi", 125.50, time.Minute)
	require.True(t, ok)
	c.Wait()

	value, found := c.Get("balance:kalshi")
	require.True(t, found)
	assert.Equal(t, 125.50, value)
}

func TestRistrettoCache_GetMissing(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("balance:polymarket")
	assert.False(t, found)
}

func TestRistrettoCache_Delete(t *testing.T) {
	c := newTestCache(t)

	c.Set("balance:kalshi", 10.0, time.Minute)
	c.Wait()
	c.Delete("balance:kalshi")
	c.Wait()

	_, found := c.Get("balance:kalshi")
	assert.False(t, found)
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("balance:kalshi", 10.0, 20*time.Millisecond)
	c.Wait()

	time.Sleep(50 * time.Millisecond)

	_, found := c.Get("balance:kalshi")
	assert.False(t, found)
}

func TestRistrettoCache_Clear(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Wait()
	c.Clear()

	_, foundA := c.Get("a")
	_, foundB := c.Get("b")
	assert.False(t, foundA)
	assert.False(t, foundB)
}
