package value

import (
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNeedleParse is returned when a needle string is neither a valid
// integer nor a valid float literal.
var ErrNeedleParse = errors.New("memscan: needle is not a valid integer or float")

// Needle is a Value whose flags were derived by parsing a human-entered
// string rather than by observing a memory window.
type Needle = Value

// ParseNeedle parses s as a numeric literal and returns a Needle.
//
// The integer path is tried first: decimal, and 0x/0/0o/0b prefixed
// bases, signed or unsigned, consuming the entire string. If that fails,
// the floating-point path is tried. Parsing a needle never infers a
// width flag from a byte count — unlike FromWindow, every width flag is
// set independently based on whether the parsed magnitude fits that
// width, via the combined unsigned-or-signed test described in spec.md
// §3: a width W flag is set iff the value is non-negative and fits the
// unsigned range of W, or negative and fits the signed range of W. This
// is what lets scan predicates accept "close-valued but sign-flipped"
// matches at a given width.
func ParseNeedle(s string) (Needle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Needle{}, ErrNeedleParse
	}

	if n, ok := tryParseInteger(s); ok {
		return n, nil
	}
	if n, ok := tryParseFloat(s); ok {
		return n, nil
	}
	return Needle{}, ErrNeedleParse
}

func tryParseInteger(s string) (Needle, bool) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return needleFromSigned(v), true
	}
	// Overflow of int64 but might still be a valid unsigned 64-bit
	// literal (e.g. 0xffffffffffffffff).
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return needleFromSigned(int64(u)), true
	}
	return Needle{}, false
}

func tryParseFloat(s string) (Needle, bool) {
	f64, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Needle{}, false
	}
	var n Needle
	binary.LittleEndian.PutUint64(n.Raw[:8], math.Float64bits(f64))
	n.Flags |= FlagF64
	if _, err := strconv.ParseFloat(s, 32); err == nil {
		n.Flags |= FlagF32
	}
	return n, true
}

// needleFromSigned builds a Needle out of the signed 64-bit interpretation
// of a parsed integer, deriving every integer width flag from that signed
// value (this is the fix for spec.md §4.2's open question: sign must come
// from the full signed value, never from the low byte of the unsigned
// reading).
func needleFromSigned(v int64) Needle {
	var n Needle
	binary.LittleEndian.PutUint64(n.Raw[:8], uint64(v))
	if fitsWidth(v, 8) {
		n.Flags |= FlagI8
	}
	if fitsWidth(v, 16) {
		n.Flags |= FlagI16
	}
	if fitsWidth(v, 32) {
		n.Flags |= FlagI32
	}
	// i64 is always set: the parser's native width covers every int64 value.
	n.Flags |= FlagI64
	return n
}

// Canonical renders n back to a textual form that ParseNeedle accepts and
// that reproduces an equal Needle (spec.md §8 invariant 4). Integer
// needles (those without a float flag) round-trip through decimal; float
// needles round-trip through strconv's shortest round-tripping format.
func (n Needle) Canonical() string {
	if !n.Flags.Has(FlagF64) {
		return strconv.FormatInt(n.I64(), 10)
	}
	return strconv.FormatFloat(n.F64(), 'g', -1, 64)
}

// fitsWidth reports whether v is representable within widthBits, either
// as an unsigned magnitude (v non-negative) or as a negative signed value
// of that width.
func fitsWidth(v int64, widthBits uint) bool {
	if v >= 0 {
		maxUnsigned := uint64(1)<<widthBits - 1
		return uint64(v) <= maxUnsigned
	}
	minSigned := -(int64(1) << (widthBits - 1))
	return v >= minSigned
}
