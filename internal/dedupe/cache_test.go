// ABOUTME: Tests for the TTL dedupe cache.
// ABOUTME: Covers duplicate detection, TTL expiry, and size-capped eviction.

package dedupe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_CheckAndMark(t *testing.T) {
	c := New(time.Minute, 100)
	defer c.Close()

	assert.False(t, c.CheckAndMark("evt-1"), "first sighting is not a duplicate")
	assert.True(t, c.CheckAndMark("evt-1"), "second sighting is a duplicate")
	assert.False(t, c.CheckAndMark("evt-2"))
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(20*time.Millisecond, 100)
	defer c.Close()

	assert.False(t, c.CheckAndMark("evt-1"))
	time.Sleep(40 * time.Millisecond)
	assert.False(t, c.CheckAndMark("evt-1"), "expired key counts as new")
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.CheckAndMark(fmt.Sprintf("evt-%d", i))
	}
	c.CheckAndMark("evt-3") // evicts evt-0

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.CheckAndMark("evt-0"), "evicted key is forgotten")
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
