package narrow

import (
	"github.com/tripwire-scan/memscan/internal/store"
	"github.com/tripwire-scan/memscan/internal/value"
)

// widthsNarrowestFirst lists the widths a stateful predicate tries, in
// the order spec.md §4.6 requires: "scan from the narrowest width
// upward so that, e.g., a value that has decreased only when viewed as
// i8 still counts as decreased for an 8-byte candidate that carries
// the i8 flag."
var widthsNarrowestFirst = [...]int{1, 2, 4, 8}

// widthFlag reports whether v's flags include the integer-width flag
// for width (no float lens is consulted: spec.md §4.6 only names
// changed/unchanged/increased/decreased over the stored entry's own
// flags, and those are always compared through the integer lenses
// narrowest-first).
func widthFlag(v value.Value, width int) bool {
	switch width {
	case 1:
		return v.Flags.Has(value.FlagI8)
	case 2:
		return v.Flags.Has(value.FlagI16)
	case 4:
		return v.Flags.Has(value.FlagI32)
	default:
		return v.Flags.Has(value.FlagI64)
	}
}

func signedAt(v value.Value, width int) int64 {
	switch width {
	case 1:
		return int64(v.I8())
	case 2:
		return int64(v.I16())
	case 4:
		return int64(v.I32())
	default:
		return v.I64()
	}
}

// Changed keeps candidates whose freshly read value differs from the
// stored one at the narrowest width both the stored entry's flags and
// the fresh value's flags advertise; wider widths are not compared.
func Changed(old store.Entry, fresh value.Value) bool {
	for _, w := range widthsNarrowestFirst {
		if !widthFlag(old.Flags, w) || !widthFlag(fresh.Flags, w) {
			continue
		}
		if signedAt(old.V, w) != signedAt(fresh.V, w) {
			return true
		}
		return false
	}
	return false
}

// Unchanged is the complement of Changed whenever the stored and fresh
// values share a width flag; when they share none, both return false.
// narrow(unchanged)
// against a static target is a no-op (spec.md §8 invariant 5), and two
// unchanged passes in a row equal one (spec.md §8 round-trip).
func Unchanged(old store.Entry, fresh value.Value) bool {
	for _, w := range widthsNarrowestFirst {
		if !widthFlag(old.Flags, w) || !widthFlag(fresh.Flags, w) {
			continue
		}
		return signedAt(old.V, w) == signedAt(fresh.V, w)
	}
	return false
}

// Increased keeps candidates whose freshly read value is greater than
// the stored one at the narrowest shared width.
func Increased(old store.Entry, fresh value.Value) bool {
	for _, w := range widthsNarrowestFirst {
		if !widthFlag(old.Flags, w) || !widthFlag(fresh.Flags, w) {
			continue
		}
		return signedAt(fresh.V, w) > signedAt(old.V, w)
	}
	return false
}

// Decreased keeps candidates whose freshly read value is less than the
// stored one at the narrowest shared width (spec.md E2).
func Decreased(old store.Entry, fresh value.Value) bool {
	for _, w := range widthsNarrowestFirst {
		if !widthFlag(old.Flags, w) || !widthFlag(fresh.Flags, w) {
			continue
		}
		return signedAt(fresh.V, w) < signedAt(old.V, w)
	}
	return false
}
