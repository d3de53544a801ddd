// Package store implements the match store: a compact, chunked container
// for up to millions of candidate addresses with cheap deletion,
// compaction, and iteration (spec.md §3, §4.4).
package store

import "github.com/tripwire-scan/memscan/internal/value"

// Entry is one candidate: the address it was found at, the value
// snapshot observed there, and that snapshot's validity flags.
type Entry struct {
	Addr  uint64
	V     value.Value
	Flags value.Flags
}

// tiers are the five fixed chunk capacities spec.md §3/§4.4 describes.
// New chunks always allocate at the largest tier; compaction may shrink
// trailing chunks down to a smaller tier to reclaim wasted capacity
// (spec.md §9's open question: this implementation keeps all five tiers;
// compaction fills the earliest chunk that still has room from later
// chunks whose capacity is no larger than its own).
var tiers = [...]int{50, 100, 200, 400, 800}

func largestTier() int { return tiers[len(tiers)-1] }

// smallestTierFitting returns the smallest tier capacity that can hold at
// least n entries, used so compaction can shrink a chunk that drained
// below a smaller tier's capacity.
func smallestTierFitting(n int) int {
	for _, cap := range tiers {
		if n <= cap {
			return cap
		}
	}
	return largestTier()
}

// chunk is a fixed-capacity array of entries plus a used counter.
type chunk struct {
	entries []Entry // len == capacity, only [0:used) are live
	used    int
}

func newChunk(capacity int) *chunk {
	return &chunk{entries: make([]Entry, capacity)}
}

func (c *chunk) capacity() int { return len(c.entries) }
func (c *chunk) full() bool    { return c.used == len(c.entries) }

// push appends e to the chunk. Caller must have verified there is room.
func (c *chunk) push(e Entry) {
	c.entries[c.used] = e
	c.used++
}

// deleteAt removes the entry at slot i via swap-with-last, O(1).
func (c *chunk) deleteAt(i int) {
	last := c.used - 1
	if i != last {
		c.entries[i] = c.entries[last]
	}
	c.used--
}

// List is an ordered sequence of chunks plus a running element count. It
// preserves insertion order across chunks but makes no order promise
// within a chunk once any deletion has occurred.
type List struct {
	chunks []*chunk
	size   int
}

// New returns an empty match list.
func New() *List {
	return &List{}
}

// Len returns the total number of live entries across all chunks; it
// must always equal the sum of each chunk's used count (spec.md §8
// invariant 1).
func (l *List) Len() int { return l.size }

// Push appends entry to the last chunk, allocating a new chunk at the
// largest tier when the last one is full or none exists.
func (l *List) Push(e Entry) {
	if len(l.chunks) == 0 || l.chunks[len(l.chunks)-1].full() {
		l.chunks = append(l.chunks, newChunk(largestTier()))
	}
	l.chunks[len(l.chunks)-1].push(e)
	l.size++
}

// VisitResult is returned by an IterateMut callback for each entry.
type VisitResult int

const (
	Keep VisitResult = iota
	Drop
)

// IterateMut visits every live entry, in chunk order; within a chunk,
// order is only guaranteed until the first deletion of that pass. fn
// receives a pointer to the entry so a kept entry can be updated in
// place (the narrow engine uses this to replace the stored snapshot
// with the freshly re-read one) and returns whether to keep or drop it.
// Dropped entries are removed via swap-with-last; chunks that become
// empty are unlinked and freed. fn may return an error to abort the
// pass early, in which case IterateMut returns that error immediately,
// leaving the list in whatever partially-processed state it was in
// (spec.md §5: cancellation must leave the store valid, not rolled
// back).
func (l *List) IterateMut(fn func(*Entry) (VisitResult, error)) error {
	write := 0
	for ci, c := range l.chunks {
		i := 0
		for i < c.used {
			res, err := fn(&c.entries[i])
			if err != nil {
				// Chunks before write were already moved down; keep them and
				// every chunk from the current one on, then drop empties.
				l.chunks = append(l.chunks[:write], l.chunks[ci:]...)
				l.compactChunks()
				return err
			}
			switch res {
			case Keep:
				i++
			case Drop:
				c.deleteAt(i)
				l.size--
			}
		}
		if c.used > 0 {
			l.chunks[write] = c
			write++
		}
	}
	l.chunks = l.chunks[:write]
	return nil
}

// compactChunks drops fully-emptied chunks without otherwise rebalancing
// capacity; used internally when IterateMut exits early on error.
func (l *List) compactChunks() {
	write := 0
	for _, c := range l.chunks {
		if c.used > 0 {
			l.chunks[write] = c
			write++
		}
	}
	l.chunks = l.chunks[:write]
}

// Compact reduces chunk count by moving entries out of later,
// partially-filled chunks into earlier ones that still have room,
// always moving into the chunk with the larger-or-equal capacity so a
// chunk never receives more entries than a smaller tier could hold
// (spec.md §4.4: "always move into the chunk with larger capacity").
// Entries are taken from the source's tail, which is exactly what
// chunk.deleteAt's swap-with-last already produces as the natural
// "next" entry to relocate. Chunks that drain to zero are freed.
func (l *List) Compact() {
	l.compactChunks()
	for {
		moved := false
		for dst := 0; dst < len(l.chunks); dst++ {
			d := l.chunks[dst]
			room := d.capacity() - d.used
			if room <= 0 {
				continue
			}
			for src := len(l.chunks) - 1; src > dst && room > 0; src-- {
				s := l.chunks[src]
				if s.capacity() > d.capacity() {
					continue
				}
				for room > 0 && s.used > 0 {
					d.push(s.entries[s.used-1])
					s.used--
					room--
					moved = true
				}
			}
		}
		l.compactChunks()
		if !moved {
			break
		}
	}
	l.shrinkTiers()
}

// shrinkTiers reallocates any chunk whose used count fits a smaller tier
// than its current capacity into a right-sized chunk, so compaction
// actually reclaims memory instead of merely moving entries between
// already-maximal chunks.
func (l *List) shrinkTiers() {
	for i, c := range l.chunks {
		fit := smallestTierFitting(c.used)
		if fit == c.capacity() {
			continue
		}
		nc := newChunk(fit)
		copy(nc.entries, c.entries[:c.used])
		nc.used = c.used
		l.chunks[i] = nc
	}
}

// Range calls fn with every live entry, in chunk order, for read-only
// consumers such as result rendering. It never mutates the list.
func (l *List) Range(fn func(Entry)) {
	for _, c := range l.chunks {
		for i := 0; i < c.used; i++ {
			fn(c.entries[i])
		}
	}
}

// ChunkSizes returns each chunk's used count for tests and diagnostics; it
// does not expose entries directly so callers can't bypass IterateMut's
// deletion bookkeeping.
func (l *List) ChunkSizes() []int {
	sizes := make([]int, len(l.chunks))
	for i, c := range l.chunks {
		sizes[i] = c.used
	}
	return sizes
}
