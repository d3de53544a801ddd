package scan

import (
	"errors"
	"fmt"

	"github.com/tripwire-scan/memscan/internal/region"
	"github.com/tripwire-scan/memscan/internal/reader"
	"github.com/tripwire-scan/memscan/internal/store"
	"github.com/tripwire-scan/memscan/internal/value"
)

// ErrInvalidRangeFlag is returned by BuildRangePredicate for an
// unrecognized RangeFlag value (spec.md §7 InvalidRangeFlag).
var ErrInvalidRangeFlag = errors.New("memscan: invalid range boundary flag")

// Alignment selects how the scan engine steps through a region's bytes
// (spec.md §4.5).
type Alignment int

const (
	// Aligned steps by the native word size; each window is exactly one
	// native word read at a word-aligned address.
	Aligned Alignment = iota
	// Unaligned steps by one byte; each window is 8 bytes starting at
	// an arbitrary byte offset.
	Unaligned
)

// nativeWordSize is the step used in Aligned mode. This core targets
// 64-bit hosts exclusively, matching the reader package's wordSize.
const nativeWordSize = 8

// Run populates store with every address across regions whose current
// window satisfies predicate, using provider to read memory (spec.md
// §4.5 "per-region loop"). provider must already be opened by the
// caller (internal/engine owns that lifecycle and opens a fresh provider
// for each scan or narrow pass).
//
// Matches are appended to store, so replaying Run against a new region
// set adds to the existing candidates (spec.md §4.7). Addresses already
// in the store are not checked for: rescanning a region appends its
// matches a second time.
func Run(regions []region.Region, provider reader.Provider, align Alignment, predicate func(value.Value) bool, st *store.List) error {
	for _, reg := range regions {
		if err := scanRegion(reg, provider, align, predicate, st); err != nil {
			return fmt.Errorf("scanning region %d [%#x,%#x): %w", reg.ID, reg.Start, reg.End, err)
		}
	}
	return nil
}

func scanRegion(reg region.Region, provider reader.Provider, align Alignment, predicate func(value.Value) bool, st *store.List) error {
	step := uint64(1)
	if align == Aligned {
		step = nativeWordSize
	}

	var buf [8]byte
	for addr := reg.Start; addr < reg.End; addr += step {
		windowLen := 8
		if remaining := reg.End - addr; remaining < 8 {
			windowLen = int(remaining)
		}

		n, err := provider.ReadAt(addr, buf[:windowLen])
		if err != nil {
			return err
		}

		v := value.FromWindow(buf[:n], n)
		if predicate(v) {
			st.Push(store.Entry{Addr: addr, V: v, Flags: v.Flags})
		}
	}
	return nil
}
