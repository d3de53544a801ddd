// Package scan implements the scan engine: streaming a region set's
// memory through a reader in aligned or unaligned mode, testing each
// window against a predicate, and pushing matches into the store
// (spec.md §4.5).
package scan

import "github.com/tripwire-scan/memscan/internal/value"

// Predicate names a scan comparison kind. Range is built with
// BuildRangePredicate instead of BuildPredicate, since it needs two
// needles and a boundary flag.
type Predicate int

const (
	Eq Predicate = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// RangeFlag selects which of the two range boundaries are inclusive
// (spec.md §4.5 "half-open/closed range").
type RangeFlag int

const (
	GtLt RangeFlag = iota // lower < w < upper
	GeLt                  // lower <= w < upper
	GtLe                  // lower < w <= upper
	GeLe                  // lower <= w <= upper
)

// widthSel is the width and numeric kind a comparison is carried out
// at, chosen from a needle's own flags (spec.md §4.5: "compare at the
// largest width the needle advertises").
type widthSel struct {
	width   int // 1, 2, 4, or 8
	isFloat bool
}

// selectWidth picks the comparison width from v's flags: widest first,
// integer preferred over float at a tied width (spec.md §4.5: "the
// float comparison is preferred only when no integer flag at the
// relevant width is set").
func selectWidth(v value.Value) widthSel {
	switch {
	case v.Flags.Has(value.FlagI64):
		return widthSel{8, false}
	case v.Flags.Has(value.FlagF64):
		return widthSel{8, true}
	case v.Flags.Has(value.FlagI32):
		return widthSel{4, false}
	case v.Flags.Has(value.FlagF32):
		return widthSel{4, true}
	case v.Flags.Has(value.FlagI16):
		return widthSel{2, false}
	default:
		return widthSel{1, false}
	}
}

// hasWidth reports whether v actually observed enough bytes to support
// a comparison at sel (e.g. a window trimmed by a short read at a
// region's tail may lack the flag sel needs).
func hasWidth(v value.Value, sel widthSel) bool {
	switch sel.width {
	case 8:
		if sel.isFloat {
			return v.Flags.Has(value.FlagF64)
		}
		return v.Flags.Has(value.FlagI64)
	case 4:
		if sel.isFloat {
			return v.Flags.Has(value.FlagF32)
		}
		return v.Flags.Has(value.FlagI32)
	case 2:
		return v.Flags.Has(value.FlagI16)
	default:
		return v.Flags.Has(value.FlagI8)
	}
}

// eqAt, ltAt, and gtAt all test both the unsigned and signed
// interpretation at sel's width and succeed if either holds (spec.md
// §4.5: "this deliberately accepts close-valued but sign-flipped
// matches at the given width"). leAt/geAt/neAt are expressed in terms
// of these three so there is exactly one place each interpretation
// pair is spelled out.

func eqAt(w, n value.Value, sel widthSel) bool {
	if sel.isFloat {
		if sel.width == 8 {
			return w.F64() == n.F64()
		}
		return w.F32() == n.F32()
	}
	switch sel.width {
	case 8:
		return w.U64() == n.U64() || w.I64() == n.I64()
	case 4:
		return w.U32() == n.U32() || w.I32() == n.I32()
	case 2:
		return w.U16() == n.U16() || w.I16() == n.I16()
	default:
		return w.U8() == n.U8() || w.I8() == n.I8()
	}
}

func ltAt(w, n value.Value, sel widthSel) bool {
	if sel.isFloat {
		if sel.width == 8 {
			return w.F64() < n.F64()
		}
		return w.F32() < n.F32()
	}
	switch sel.width {
	case 8:
		return w.U64() < n.U64() || w.I64() < n.I64()
	case 4:
		return w.U32() < n.U32() || w.I32() < n.I32()
	case 2:
		return w.U16() < n.U16() || w.I16() < n.I16()
	default:
		return w.U8() < n.U8() || w.I8() < n.I8()
	}
}

func gtAt(w, n value.Value, sel widthSel) bool {
	if sel.isFloat {
		if sel.width == 8 {
			return w.F64() > n.F64()
		}
		return w.F32() > n.F32()
	}
	switch sel.width {
	case 8:
		return w.U64() > n.U64() || w.I64() > n.I64()
	case 4:
		return w.U32() > n.U32() || w.I32() > n.I32()
	case 2:
		return w.U16() > n.U16() || w.I16() > n.I16()
	default:
		return w.U8() > n.U8() || w.I8() > n.I8()
	}
}

func neAt(w, n value.Value, sel widthSel) bool { return !eqAt(w, n, sel) }
func leAt(w, n value.Value, sel widthSel) bool { return eqAt(w, n, sel) || ltAt(w, n, sel) }
func geAt(w, n value.Value, sel widthSel) bool { return eqAt(w, n, sel) || gtAt(w, n, sel) }

// BuildPredicate returns a window evaluator for one of the six
// comparison kinds against needle, dispatching its width from needle's
// own flags.
func BuildPredicate(pred Predicate, needle value.Needle) func(value.Value) bool {
	sel := selectWidth(needle)
	var at func(w, n value.Value, sel widthSel) bool
	switch pred {
	case Eq:
		at = eqAt
	case Ne:
		at = neAt
	case Lt:
		at = ltAt
	case Le:
		at = leAt
	case Gt:
		at = gtAt
	case Ge:
		at = geAt
	default:
		at = func(value.Value, value.Value, widthSel) bool { return false }
	}
	return func(w value.Value) bool {
		return hasWidth(w, sel) && at(w, needle, sel)
	}
}

// BuildRangePredicate returns a window evaluator for a half-open or
// closed range between lower and upper, per flag. The comparison width
// is the narrower of the two needles' own widths, so both bounds are
// guaranteed representable at the width actually used.
func BuildRangePredicate(lower, upper value.Needle, flag RangeFlag) (func(value.Value) bool, error) {
	switch flag {
	case GtLt, GeLt, GtLe, GeLe:
	default:
		return nil, ErrInvalidRangeFlag
	}

	selLower := selectWidth(lower)
	selUpper := selectWidth(upper)
	sel := selLower
	if selUpper.width < sel.width {
		sel = selUpper
	}

	lowerHolds := gtAt
	if flag == GeLt || flag == GeLe {
		lowerHolds = geAt
	}
	upperHolds := ltAt
	if flag == GtLe || flag == GeLe {
		upperHolds = leAt
	}

	return func(w value.Value) bool {
		return hasWidth(w, sel) && lowerHolds(w, lower, sel) && upperHolds(w, upper, sel)
	}, nil
}
