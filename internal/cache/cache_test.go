package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("12345")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("12345", "<div>chart</div>"))

	content, ok, err := c.Get("12345")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<div>chart</div>", content)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheOverwrite(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("12345", "old"))
	require.NoError(t, c.Set("12345", "new"))

	content, ok, err := c.Get("12345")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", content)
}

func TestCacheEmptyIdentifier(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("", "<div>anonymous</div>"))
	content, ok, err := c.Get("")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<div>anonymous</div>", content)
}

func TestCacheExpiry(t *testing.T) {
	c, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("12345", "<div>chart</div>"))
	time.Sleep(100 * time.Millisecond)

	_, ok, err := c.Get("12345")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRejectsZeroTTL(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}
