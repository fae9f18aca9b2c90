package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_SetGet(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache(func() time.Time { return now })

	c.Set("AAPL", 12.5, time.Hour)

	v, ok := c.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = c.Get("MSFT")
	assert.False(t, ok)
}

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache(func() time.Time { return now })

	c.Set("AAPL", 12.5, time.Hour)

	// Just before expiry
	now = now.Add(time.Hour)
	_, ok := c.Get("AAPL")
	assert.True(t, ok)

	// Past expiry the entry is evicted
	now = now.Add(time.Second)
	_, ok = c.Get("AAPL")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_Overwrite(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache(func() time.Time { return now })

	c.Set("SPY", 1.0, time.Hour)
	c.Set("SPY", 2.0, time.Hour)

	v, ok := c.Get("SPY")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 1, c.Len())
}
