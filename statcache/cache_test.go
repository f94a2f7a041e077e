package statcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sschwarzer/ftputil/listparse"
)

func rec(name string) *listparse.Record {
	return &listparse.Record{Name: name}
}

func TestGetPutInvalidate(t *testing.T) {
	c := New(10, 0)
	_, ok := c.Get("/a")
	assert.False(t, ok)

	c.Put("/a", rec("a"))
	got, ok := c.Get("/a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)

	c.Invalidate("/a")
	_, ok = c.Get("/a")
	assert.False(t, ok)
}

func TestMaxAgeExpiry(t *testing.T) {
	c := New(10, 50*time.Millisecond)
	c.Put("/a", rec("a"))
	_, ok := c.Get("/a")
	require.True(t, ok)
	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("/a")
	assert.False(t, ok)
}

func TestDisableEnablePreservesContents(t *testing.T) {
	c := New(10, 0)
	c.Put("/a", rec("a"))
	c.Disable()

	_, ok := c.Get("/a")
	assert.False(t, ok, "disabled cache always misses")

	c.Put("/b", rec("b"))
	_, ok = c.Get("/b")
	assert.False(t, ok)

	c.Enable()
	_, ok = c.Get("/a")
	assert.True(t, ok, "contents from before Disable survive")
	_, ok = c.Get("/b")
	assert.False(t, ok, "Put while disabled was a no-op")
}

func TestEvictionAndAutoGrow(t *testing.T) {
	c := New(2, 0)
	names := []string{"a", "b", "c", "d", "e"}
	c.EnsureCapacity(len(names))
	for _, n := range names {
		c.Put("/dir/"+n, rec(n))
	}
	for _, n := range names {
		_, ok := c.Get("/dir/" + n)
		assert.True(t, ok, "entry %q should survive after auto-grow", n)
	}
	assert.Equal(t, len(names), c.Len())
}

func TestResizeEvicts(t *testing.T) {
	c := New(5, 0)
	for _, n := range []string{"a", "b", "c"} {
		c.Put("/"+n, rec(n))
	}
	c.Resize(1)
	assert.Equal(t, 1, c.Len())
}
