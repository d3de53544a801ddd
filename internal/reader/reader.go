// Package reader implements the two memory-reading providers the scan
// and narrow engines pick between per pass: a positional pseudo-file
// reader and a word-at-a-time debugger-peek reader (spec.md §4.3, §9).
package reader

import "github.com/tripwire-scan/memscan/internal/target"

// Provider is the capability set both readers implement: open, a
// positional read of one window at a given address, a mirroring write,
// and close. There is no separate "position at a region" step; each
// ReadAt names its own address. Modeling it as one
// small interface (rather than a vtable of single-use functions per
// provider instance) lets scan/narrow hold exactly one capability per
// pass and be oblivious to which provider backs it.
type Provider interface {
	// Open prepares the provider to read from pid. Called once per pass.
	Open(pid target.PID) error

	// ReadAt reads up to len(buf) bytes at addr, returning the number of
	// bytes actually read. A short read (n < len(buf)) is not an error;
	// it means the remaining bytes are unavailable (region tail) and the
	// caller trims width flags accordingly. err is non-nil only for a
	// genuine I/O failure, which the caller propagates as the appropriate
	// §7 error kind; a target that has gone away is reported as
	// target.ErrGone, not as a short read.
	ReadAt(addr uint64, buf []byte) (n int, err error)

	// Poke writes buf at addr, returning the number of bytes written.
	// This mirrors ReadAt for the sake of a symmetric capability, per
	// spec.md §9's open question on the write path; neither scan nor
	// narrow ever calls it (spec.md §1 Non-goals: "Writing to target
	// memory...contributes no design").
	Poke(addr uint64, buf []byte) (n int, err error)

	// Close releases any resources (e.g. the /proc/<pid>/mem handle)
	// opened by Open. Safe to call even if Open failed or was never
	// called. Close is attempted on every exit path, including when an
	// earlier error has already been recorded; Close's own failure
	// never overwrites that earlier error (spec.md §5).
	Close() error
}
