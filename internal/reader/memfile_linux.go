//go:build linux

package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/tripwire-scan/memscan/internal/target"
	"golang.org/x/sys/unix"
)

// ProbeProcMem reports whether /proc/<pid>/mem can be opened for this
// pid: try the fast path, and let the caller fall back to the slower
// provider if it fails.
func ProbeProcMem(pid target.PID) bool {
	path := fmt.Sprintf("/proc/%d/mem", pid)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		f, err = os.Open(path)
		if err != nil {
			return false
		}
	}
	f.Close()
	return true
}

// MemFile reads and writes a target's memory through /proc/<pid>/mem
// via positional pread/pwrite. There is no sliding window to maintain:
// every call is a single positional read or write at the requested
// address.
type MemFile struct {
	f *os.File
}

var _ Provider = (*MemFile)(nil)

func (m *MemFile) Open(pid target.PID) error {
	path := fmt.Sprintf("/proc/%d/mem", pid)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		// Fall back to read-only: Poke will fail later, but scanning
		// still works for an unprivileged caller that can read but not
		// write (e.g. no CAP_SYS_PTRACE for write).
		f, err = os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
	}
	m.f = f
	return nil
}

func (m *MemFile) ReadAt(addr uint64, buf []byte) (int, error) {
	n, err := m.f.ReadAt(buf, int64(addr))
	if err != nil {
		if errors.Is(err, io.EOF) {
			// A short read at the tail of a mapping is not an error
			// (spec.md §7 ShortReadAtTail); os.File.ReadAt returns the
			// partial count alongside io.EOF in that case.
			return n, nil
		}
		if isESRCH(err) {
			return n, target.ErrGone
		}
		return n, err
	}
	return n, nil
}

func (m *MemFile) Poke(addr uint64, buf []byte) (int, error) {
	n, err := m.f.WriteAt(buf, int64(addr))
	if err != nil {
		if isESRCH(err) {
			return n, target.ErrGone
		}
		return n, err
	}
	return n, nil
}

func (m *MemFile) Close() error {
	if m.f == nil {
		return nil
	}
	return m.f.Close()
}

// isESRCH reports whether err wraps ESRCH ("no such process"), the
// errno /proc/<pid>/mem I/O returns once the target has exited out from
// under an in-flight read or write. Inspecting the wrapped errno this way
// is more robust than comparing *os.PathError by identity.
func isESRCH(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == unix.ESRCH
}
