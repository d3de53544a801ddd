// Package engine wires the region set, reader-provider selection, scan
// engine, and narrow engine together behind a small Session type — the
// "recommended outer cycle" of spec.md §4.7: a first scan pass against
// a filtered region set, followed by repeated narrow passes.
package engine

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tripwire-scan/memscan/internal/narrow"
	"github.com/tripwire-scan/memscan/internal/reader"
	"github.com/tripwire-scan/memscan/internal/region"
	"github.com/tripwire-scan/memscan/internal/scan"
	"github.com/tripwire-scan/memscan/internal/store"
	"github.com/tripwire-scan/memscan/internal/target"
	"github.com/tripwire-scan/memscan/internal/value"
)

// ReaderPreference selects which memory-reading provider a Session
// uses, mirroring the config keys in internal/config.
type ReaderPreference int

const (
	// ReaderAuto opens the pseudo-file reader when possible and falls
	// back to the word-peek reader otherwise (spec.md §4.3).
	ReaderAuto ReaderPreference = iota
	ReaderProcMem
	ReaderPtrace
)

// Session owns one target's region set and match store across a
// sequence of scan/narrow passes.
type Session struct {
	PID     target.PID
	Regions *region.RegionSet
	Store   *store.List

	ReaderPref ReaderPreference
	Log        *logrus.Logger
}

// NewSession creates a Session with an empty match store. pid must
// already be an attached, stopped target per spec.md §5; the Session
// never attaches or detaches.
func NewSession(pid target.PID) *Session {
	return &Session{
		PID:   pid,
		Store: store.New(),
		Log:   logrus.StandardLogger(),
	}
}

// LoadRegions parses the target's memory map and replaces the
// Session's region set wholesale (spec.md §3: "replaced wholesale by
// the next parse").
func (s *Session) LoadRegions() error {
	path := fmt.Sprintf("/proc/%d/maps", s.PID)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	set, err := region.ParseMaps(f)
	if err != nil {
		return fmt.Errorf("parsing memory map: %w", err)
	}
	s.Regions = set
	s.Log.WithField("regions", set.Len()).Debug("loaded region set")
	return nil
}

// openProvider opens the reader provider indicated by s.ReaderPref,
// falling back to the word-peek reader in Auto mode when the
// pseudo-file cannot be opened (spec.md §4.3: "if the pseudo-file is
// accessible and openable, use it; otherwise fall back").
func (s *Session) openProvider() (reader.Provider, error) {
	switch s.ReaderPref {
	case ReaderProcMem:
		p := &reader.MemFile{}
		if err := p.Open(s.PID); err != nil {
			return nil, fmt.Errorf("opening /proc/%d/mem: %w", s.PID, err)
		}
		return p, nil
	case ReaderPtrace:
		p := &reader.WordPeek{}
		if err := p.Open(s.PID); err != nil {
			return nil, err
		}
		return p, nil
	default:
		if reader.ProbeProcMem(s.PID) {
			p := &reader.MemFile{}
			if err := p.Open(s.PID); err == nil {
				return p, nil
			}
		}
		s.Log.Debug("falling back to ptrace word-peek reader")
		p := &reader.WordPeek{}
		if err := p.Open(s.PID); err != nil {
			return nil, fmt.Errorf("opening ptrace reader: %w", err)
		}
		return p, nil
	}
}

// regionsOf returns views.Regions() if views is non-nil, else every
// region in the Session's current set.
func (s *Session) regionsOf(views *region.FilterView) []region.Region {
	if views != nil {
		return views.Regions()
	}
	if s.Regions == nil {
		return nil
	}
	return s.Regions.Regions()
}

// Scan runs a scan pass over views (or the whole region set, if views
// is nil) with predicate, appending matches to the Session's store
// (spec.md §4.7). Repeated scans do not deduplicate: an address matched
// again is stored again.
func (s *Session) Scan(views *region.FilterView, align scan.Alignment, predicate func(value.Value) bool) error {
	regions := s.regionsOf(views)
	s.Log.WithFields(logrus.Fields{"regions": len(regions), "aligned": align == scan.Aligned}).Info("scan pass starting")

	p, err := s.openProvider()
	if err != nil {
		return err
	}
	defer p.Close()

	before := s.Store.Len()
	if err := scan.Run(regions, p, align, predicate, s.Store); err != nil {
		return err
	}
	s.Log.WithField("new_matches", s.Store.Len()-before).Info("scan pass complete")
	return nil
}

// Narrow runs a narrow pass, re-reading every live candidate through a
// freshly opened reader and dropping those predicate rejects (spec.md
// §4.6).
func (s *Session) Narrow(predicate narrow.Predicate) error {
	s.Log.WithField("candidates", s.Store.Len()).Info("narrow pass starting")

	p, err := s.openProvider()
	if err != nil {
		return err
	}
	defer p.Close()

	if err := narrow.Run(p, predicate, s.Store); err != nil {
		return err
	}
	s.Log.WithField("survivors", s.Store.Len()).Info("narrow pass complete")
	return nil
}
