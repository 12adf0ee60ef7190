package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	id    uint64
	value int64
}

func TestPoolGrowthKeepsHandlesStable(t *testing.T) {
	p := NewPool[record](4)
	require.Equal(t, 4, p.Capacity())

	first := make([]*record, 0, 4)
	for i := 0; i < 4; i++ {
		h := p.Get()
		h.id = uint64(i)
		first = append(first, h)
	}

	// Exhausted: next Get doubles the pool.
	extra := p.Get()
	require.Equal(t, 8, p.Capacity())
	require.NotNil(t, extra)

	// Handles issued before growth still point at their records.
	for i, h := range first {
		require.Equal(t, uint64(i), h.id)
	}
}

func TestPoolReuseAndZeroing(t *testing.T) {
	p := NewPool[record](2)

	h := p.Get()
	h.id = 42
	h.value = -1
	p.Put(h)

	require.Equal(t, 0, p.Allocated())

	// Recycled slot comes back zeroed.
	h2 := p.Get()
	require.Equal(t, uint64(0), h2.id)
	require.Equal(t, int64(0), h2.value)
	require.Equal(t, 1, p.Allocated())
}

func TestPoolDefaultCapacity(t *testing.T) {
	p := NewPool[record](0)
	require.Equal(t, DefaultCapacity, p.Capacity())
}

func TestPoolAllocatedTracksOutstanding(t *testing.T) {
	p := NewPool[record](8)
	handles := make([]*record, 0, 6)
	for i := 0; i < 6; i++ {
		handles = append(handles, p.Get())
	}
	require.Equal(t, 6, p.Allocated())
	for _, h := range handles {
		p.Put(h)
	}
	require.Equal(t, 0, p.Allocated())
}
