// Package value implements the width-ambiguous tagged value model: every
// observed 8-byte window is interpreted simultaneously as a 1/2/4/8-byte
// signed or unsigned integer and as a 32/64-bit float, with a set of
// validity flags recording which of those interpretations are plausible.
package value

import (
	"encoding/binary"
	"math"
)

// Flags records which numeric interpretations of a Value are plausible.
type Flags uint8

const (
	FlagI8 Flags = 1 << iota
	FlagI16
	FlagI32
	FlagI64
	FlagF32
	FlagF64
	// FlagIneqForward and FlagIneqReverse are reserved for future
	// inequality-chain optimizations (spec §3); the core never sets them.
	FlagIneqForward
	FlagIneqReverse
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Value is an 8-byte payload viewed through six numeric lenses plus a
// validity-flag set describing which lenses are meaningful.
type Value struct {
	Raw   [8]byte
	Flags Flags
}

// FromWindow builds a Value from a memory window of n valid bytes (1..8).
// Bytes beyond n are assumed zero (the caller must have zeroed them, or
// pass a buf that is exactly n bytes long). Float flags are width-only
// (f32 requires n>=4, f64 requires n>=8), but integer width flags are
// magnitude-conditional just like a parsed needle's: n only caps the
// widths that are even candidates, and a candidate width W's flag is set
// only when the full zero-extended signed value actually fits W (spec.md
// §3's "i8 is set when ... the full-width signed value lies in
// [INT8_MIN, INT8_MAX]", and analogously for i16/i32). A window holding
// 300 in 8 bytes, for instance, clears i8 even though n=8 covers it.
func FromWindow(buf []byte, n int) Value {
	if n < 0 {
		n = 0
	}
	if n > 8 {
		n = 8
	}
	var v Value
	copy(v.Raw[:n], buf[:n])

	full := int64(binary.LittleEndian.Uint64(v.Raw[:8]))
	if n >= 1 && fitsWidth(full, 8) {
		v.Flags |= FlagI8
	}
	if n >= 2 && fitsWidth(full, 16) {
		v.Flags |= FlagI16
	}
	if n >= 4 {
		if fitsWidth(full, 32) {
			v.Flags |= FlagI32
		}
		v.Flags |= FlagF32
	}
	if n >= 8 {
		// i64 is always set once n covers the full width: the full-width
		// signed value trivially fits its own width.
		v.Flags |= FlagI64
		v.Flags |= FlagF64
	}
	return v
}

func (v Value) U8() uint8   { return v.Raw[0] }
func (v Value) I8() int8   { return int8(v.Raw[0]) }
func (v Value) U16() uint16 { return binary.LittleEndian.Uint16(v.Raw[:2]) }
func (v Value) I16() int16  { return int16(v.U16()) }
func (v Value) U32() uint32 { return binary.LittleEndian.Uint32(v.Raw[:4]) }
func (v Value) I32() int32  { return int32(v.U32()) }
func (v Value) U64() uint64 { return binary.LittleEndian.Uint64(v.Raw[:8]) }
func (v Value) I64() int64  { return int64(v.U64()) }

func (v Value) F32() float32 {
	return math.Float32frombits(v.U32())
}

func (v Value) F64() float64 {
	return math.Float64frombits(v.U64())
}

// Equal reports whether the raw bytes of two values are identical.
func (v Value) Equal(o Value) bool { return v.Raw == o.Raw }
