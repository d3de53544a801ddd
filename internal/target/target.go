//go:build linux

// Package target models the external debugger-primitive library's
// contract as the core is allowed to consume it: an opaque process id,
// and the existence of an attached, stopped target identified by that
// pid (spec.md §1, §6). Everything else about attaching, detaching,
// breakpoints, and register state lives outside the core.
package target

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrGone is returned when the target process has exited or is
// otherwise unreachable (spec.md §7 TargetGone).
var ErrGone = errors.New("memscan: target process is gone")

// PID is the opaque, platform-native process identifier the engine
// treats as a handle onto the attached target. The core never attaches
// or detaches; it assumes the caller's debugger primitive library has
// already stopped the process named by PID before a scan or narrow pass
// begins (spec.md §5).
type PID int32

// Alive reports whether a process with this PID currently exists, via
// the standard zero-signal liveness probe (kill(pid, 0)).
func (p PID) Alive() bool {
	err := unix.Kill(int(p), 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Check returns ErrGone, wrapped with the pid, if the target is no
// longer alive; the errno from the probe is not included.
func (p PID) Check() error {
	if p.Alive() {
		return nil
	}
	return fmt.Errorf("%w: pid %d", ErrGone, p)
}
