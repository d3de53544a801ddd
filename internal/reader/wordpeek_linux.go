//go:build linux

package reader

import (
	"errors"
	"fmt"

	"github.com/tripwire-scan/memscan/internal/target"
	"golang.org/x/sys/unix"
)

// wordSize is the native word the debugger peek primitive reads at a
// time. Only amd64/arm64 hosts matter here, both 8-byte words.
const wordSize = 8

// WordPeek reads a target's memory one native word at a time through
// PTRACE_PEEKDATA, for targets where /proc/<pid>/mem cannot be opened
// (spec.md §4.3: "if the pseudo-file is accessible and openable, use
// it; otherwise fall back to the word-peek reader"). PTRACE_PEEKDATA
// cannot return a short read, so an 8-byte window that straddles the
// end of a mapping would fault. WordPeek itself knows no region bounds:
// the scan engine only asks for bytes inside the region it is walking,
// while the narrow engine always asks for 8 bytes at a candidate's
// address, so a candidate within 8 bytes of its region's end can make a
// peek land past the mapping and fail.
//
// The caller drives WordPeek one window at a time via ReadAt, same as
// MemFile; WordPeek keeps a small ring of the last two words read so
// that unaligned, byte-stepped scanning doesn't re-peek a word it
// already has (spec.md §4.5's sliding-window algorithm).
type WordPeek struct {
	pid target.PID

	// ring holds the most recent words read, in the order fetched.
	// ringBase is the address of ring[0]. filled is how many of the
	// (at most 2) slots are valid.
	ring     [2]uint64
	ringBase uint64
	filled   int
}

var _ Provider = (*WordPeek)(nil)

func (w *WordPeek) Open(pid target.PID) error {
	w.pid = pid
	w.filled = 0
	return nil
}

func (w *WordPeek) Close() error { return nil }

// peekWord fetches the native word at a word-aligned addr, either from
// the ring (if already present) or via a fresh PTRACE_PEEKDATA call,
// sliding the ring forward when addr is the next word after what's
// cached and dropping it (starting fresh) otherwise.
func (w *WordPeek) peekWord(addr uint64) (uint64, error) {
	if w.filled > 0 {
		for i := 0; i < w.filled; i++ {
			if w.ringBase+uint64(i)*wordSize == addr {
				return w.ring[i], nil
			}
		}
	}

	word, err := w.ptracePeek(addr)
	if err != nil {
		return 0, err
	}

	if w.filled > 0 && addr == w.ringBase+uint64(w.filled)*wordSize && w.filled < len(w.ring) {
		w.ring[w.filled] = word
		w.filled++
	} else if w.filled == len(w.ring) && addr == w.ringBase+uint64(len(w.ring))*wordSize {
		// Slide the ring: drop the oldest word, append the new one.
		w.ring[0] = w.ring[1]
		w.ring[1] = word
		w.ringBase += wordSize
	} else {
		w.ring[0] = word
		w.ringBase = addr
		w.filled = 1
	}
	return word, nil
}

func (w *WordPeek) ptracePeek(addr uint64) (uint64, error) {
	var buf [wordSize]byte
	n, err := unix.PtracePeekData(int(w.pid), uintptr(addr), buf[:])
	if err != nil {
		if errors.Is(err, unix.ESRCH) {
			return 0, target.ErrGone
		}
		return 0, fmt.Errorf("ptrace peek at %#x: %w", addr, err)
	}
	if n != wordSize {
		return 0, fmt.Errorf("ptrace peek at %#x: short peek (%d bytes)", addr, n)
	}
	return leUint64(buf[:]), nil
}

// ReadAt fills buf from successive word peeks starting at the
// word-aligned address at or before addr, byte-shifting the result
// into place. It honors the same short-read contract as MemFile: if
// the caller's declared region ends before addr+len(buf), the caller
// is responsible for only asking for bytes known to exist; ReadAt
// itself always tries to fill the full window and returns an error
// only on a genuine peek failure (e.g. the target going away), never a
// partial word — PTRACE_PEEKDATA has no short-read concept, so a short
// window only arises when the caller asks for fewer bytes (the scan
// engine does this at a region's tail), never from ReadAt itself.
func (w *WordPeek) ReadAt(addr uint64, buf []byte) (int, error) {
	filled := 0
	for filled < len(buf) {
		cur := addr + uint64(filled)
		wordAddr := cur - cur%wordSize
		inWord := int(cur % wordSize)

		word, err := w.peekWord(wordAddr)
		if err != nil {
			return filled, err
		}
		wordBytes := leBytes(word)
		for inWord < wordSize && filled < len(buf) {
			buf[filled] = wordBytes[inWord]
			inWord++
			filled++
		}
	}
	return filled, nil
}

// Poke writes buf at addr using PTRACE_POKEDATA, one native word at a
// time via a read-modify-write so a write narrower than a full word
// doesn't clobber neighboring bytes. Mirrors ReadAt for the symmetric
// capability spec.md §9 leaves open; unused by scan/narrow.
func (w *WordPeek) Poke(addr uint64, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		wordAddr := addr + uint64(written)
		wordAddr -= wordAddr % wordSize
		var existing [wordSize]byte
		n, err := unix.PtracePeekData(int(w.pid), uintptr(wordAddr), existing[:])
		if err != nil || n != wordSize {
			if errors.Is(err, unix.ESRCH) {
				return written, target.ErrGone
			}
			return written, fmt.Errorf("ptrace peek (for poke) at %#x: %w", wordAddr, err)
		}
		offset := int((addr + uint64(written)) - wordAddr)
		for offset < wordSize && written < len(buf) {
			existing[offset] = buf[written]
			offset++
			written++
		}
		if _, err := unix.PtracePokeData(int(w.pid), uintptr(wordAddr), existing[:]); err != nil {
			if errors.Is(err, unix.ESRCH) {
				return written, target.ErrGone
			}
			return written, fmt.Errorf("ptrace poke at %#x: %w", wordAddr, err)
		}
		w.filled = 0 // invalidate the ring: memory under it just changed
	}
	return written, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leBytes(v uint64) [wordSize]byte {
	var b [wordSize]byte
	for i := 0; i < wordSize; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
