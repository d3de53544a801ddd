package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwire-scan/memscan/internal/value"
)

func sumChunkSizes(l *List) int {
	total := 0
	for _, n := range l.ChunkSizes() {
		total += n
	}
	return total
}

func TestPushAndLen(t *testing.T) {
	l := New()
	for i := 0; i < 1200; i++ {
		l.Push(Entry{Addr: uint64(i)})
	}
	assert.Equal(t, 1200, l.Len())
	assert.Equal(t, l.Len(), sumChunkSizes(l))
}

func TestIterateMut_DropEven(t *testing.T) {
	l := New()
	for i := 0; i < 500; i++ {
		l.Push(Entry{Addr: uint64(i)})
	}
	err := l.IterateMut(func(e *Entry) (VisitResult, error) {
		if e.Addr%2 == 0 {
			return Drop, nil
		}
		return Keep, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 250, l.Len())

	seen := map[uint64]bool{}
	l.Range(func(e Entry) {
		assert.NotZero(t, e.Addr%2, "even address %d survived drop pass", e.Addr)
		seen[e.Addr] = true
	})
	assert.Len(t, seen, 250)
	assert.Equal(t, l.Len(), sumChunkSizes(l))
}

func TestIterateMut_UpdateInPlace(t *testing.T) {
	l := New()
	l.Push(Entry{Addr: 1, V: value.Value{}})
	err := l.IterateMut(func(e *Entry) (VisitResult, error) {
		e.Flags = 0xFF
		return Keep, nil
	})
	require.NoError(t, err)

	var got value.Flags
	l.Range(func(e Entry) { got = e.Flags })
	assert.EqualValues(t, 0xFF, got)
}

func TestCompact_PreservesCountAndInvariants(t *testing.T) {
	l := New()
	for i := 0; i < 2000; i++ {
		l.Push(Entry{Addr: uint64(i)})
	}
	// Drop 90% of entries, leaving chunks sparsely filled.
	err := l.IterateMut(func(e *Entry) (VisitResult, error) {
		if e.Addr%10 != 0 {
			return Drop, nil
		}
		return Keep, nil
	})
	require.NoError(t, err)

	before := l.Len()
	l.Compact()
	assert.Equal(t, before, l.Len(), "Compact must not change Len()")

	for _, n := range l.ChunkSizes() {
		assert.Positive(t, n, "Compact left an empty or negative chunk")
	}
	assert.Equal(t, l.Len(), sumChunkSizes(l))
}

func TestDeleteAt_SwapWithLast(t *testing.T) {
	c := newChunk(4)
	c.push(Entry{Addr: 1})
	c.push(Entry{Addr: 2})
	c.push(Entry{Addr: 3})
	c.deleteAt(0)
	require.Equal(t, 2, c.used)
	assert.Equal(t, uint64(3), c.entries[0].Addr, "swapped from last")
}
