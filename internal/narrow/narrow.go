// Package narrow implements the narrow (match-refine) engine: re-read
// every candidate in a match store and drop those that no longer
// satisfy a predicate, then compact (spec.md §4.6).
package narrow

import (
	"errors"
	"fmt"

	"github.com/tripwire-scan/memscan/internal/reader"
	"github.com/tripwire-scan/memscan/internal/store"
	"github.com/tripwire-scan/memscan/internal/target"
	"github.com/tripwire-scan/memscan/internal/value"
)

// ErrOutOfMemory names the allocation-failure kind of spec.md §7. No
// code path returns it: narrow never grows the store, and store.Push,
// which scan uses to grow it, has no error result.
var ErrOutOfMemory = errors.New("memscan: allocation failure")

// Predicate decides whether a re-read candidate survives a narrow
// pass. old is the entry's stored snapshot before this pass; fresh is
// the value just read from the target, whose flags are already trimmed
// to the number of bytes actually readable.
// A predicate returning false drops the candidate.
type Predicate func(old store.Entry, fresh value.Value) bool

// FromWindowPredicate adapts a width-dispatching window predicate (the
// kind scan.BuildPredicate / scan.BuildRangePredicate produce) into a
// narrow.Predicate that ignores the stored entry and judges only the
// freshly read value, for narrow passes driven by a needle rather than
// by comparison against the previous snapshot (spec.md §4.7: "a scan
// may be replayed... subsequent passes are narrows" with an ordinary
// needle predicate, not only the stateful ones in stateful.go).
func FromWindowPredicate(pred func(value.Value) bool) Predicate {
	return func(_ store.Entry, fresh value.Value) bool { return pred(fresh) }
}

// Run re-reads every live entry in st through provider, keeping those
// for which predicate returns true and updating kept entries' stored
// snapshot to the freshly read value, then compacts the store (spec.md
// §4.6 steps 2-4). provider must already be opened by the caller.
//
// A re-read that fails (other than a short read, which is not an
// error) drops the candidate rather than aborting the whole pass,
// matching the per-candidate state machine in spec.md §4.6: "[Live]
// --re-read fails--> [Dropped]". A failure that indicates the target
// itself is gone (reader.Provider wrapping target.ErrGone) aborts the
// remaining pass immediately, since no further candidate can be
// re-read either.
func Run(provider reader.Provider, predicate Predicate, st *store.List) error {
	err := st.IterateMut(func(e *store.Entry) (store.VisitResult, error) {
		var buf [8]byte
		n, readErr := provider.ReadAt(e.Addr, buf[:])
		if readErr != nil {
			if errors.Is(readErr, target.ErrGone) {
				return store.Drop, readErr
			}
			return store.Drop, nil
		}

		fresh := value.FromWindow(buf[:n], n)
		if !predicate(*e, fresh) {
			return store.Drop, nil
		}
		e.V = fresh
		e.Flags = fresh.Flags
		return store.Keep, nil
	})
	if err != nil {
		return fmt.Errorf("narrowing: %w", err)
	}

	st.Compact()
	return nil
}
