package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacklog_DrainFIFO(t *testing.T) {
	b := newBacklog(10, time.Minute)

	b.append("search:r1", []byte("first"))
	b.append("search:r1", []byte("second"))
	b.append("search:r1", []byte("third"))

	drained := b.drain("search:r1")
	require.Len(t, drained, 3)
	assert.Equal(t, "first", string(drained[0]))
	assert.Equal(t, "second", string(drained[1]))
	assert.Equal(t, "third", string(drained[2]))

	// Drained exactly once
	assert.Empty(t, b.drain("search:r1"))
	assert.Zero(t, b.depth("search:r1"))
}

func TestBacklog_PerKeyBoundEvictsOldest(t *testing.T) {
	b := newBacklog(3, time.Minute)

	for i := 0; i < 5; i++ {
		b.append("search:r1", []byte(fmt.Sprintf("m%d", i)))
	}

	drained := b.drain("search:r1")
	require.Len(t, drained, 3)
	assert.Equal(t, "m2", string(drained[0]))
	assert.Equal(t, "m4", string(drained[2]))
}

func TestBacklog_TTLExpiry(t *testing.T) {
	b := newBacklog(10, time.Minute)

	now := time.Now()
	b.now = func() time.Time { return now }

	b.append("search:r1", []byte("stale"))

	b.now = func() time.Time { return now.Add(30 * time.Second) }
	b.append("search:r1", []byte("fresh"))

	// Past the TTL of the first message only
	b.now = func() time.Time { return now.Add(90 * time.Second) }

	drained := b.drain("search:r1")
	require.Len(t, drained, 1)
	assert.Equal(t, "fresh", string(drained[0]))
}

func TestBacklog_KeysAreIndependent(t *testing.T) {
	b := newBacklog(10, time.Minute)

	b.append("search:r1", []byte("a"))
	b.append("search:r2", []byte("b"))

	assert.Len(t, b.drain("search:r1"), 1)
	assert.Equal(t, 1, b.depth("search:r2"))
}
