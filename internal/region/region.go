// Package region parses a target process's virtual memory map and holds
// the resulting region set, plus predicate-driven filter views over it.
package region

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// CowKind is the "copy-on-write kind" bit of a mapping's permission field.
type CowKind uint8

const (
	CowUnknown CowKind = iota
	CowPrivate
	CowShared
)

// Perm is a bitmask of read/write/execute permission bits.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// Region is one parsed, immutable line of a memory map.
type Region struct {
	ID    int // 1-based, monotonic within a RegionSet
	Start uint64
	End   uint64 // exclusive
	Perm  Perm
	Cow   CowKind
	Path  string // may be empty, absolute, or a pseudo-path such as "[heap]"
}

func (r Region) Size() uint64 { return r.End - r.Start }

// ErrMalformedMapLine is returned when a non-empty map-file line does not
// contain at least the ten fields a valid line requires.
var ErrMalformedMapLine = errors.New("memscan: malformed memory map line")

// RegionSet is an append-only, read-only-after-parse ordered collection of
// regions. A RegionSet is replaced wholesale by the next parse; it is
// never mutated in place.
type RegionSet struct {
	regions []Region
}

// Regions returns the parsed regions in map-file order.
func (s *RegionSet) Regions() []Region {
	return s.regions
}

func (s *RegionSet) Len() int { return len(s.regions) }

// ParseMaps parses a Linux /proc/<pid>/maps-formatted stream and returns
// a RegionSet containing only regions that are both readable and
// writable (spec.md §4.1: "this is the core's chosen policy; it keeps
// scanning away from read-only code").
func ParseMaps(r io.Reader) (*RegionSet, error) {
	set := &RegionSet{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	id := 1
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		reg, err := parseMapLine(line)
		if err != nil {
			return nil, err
		}
		if reg.Perm&PermRead == 0 || reg.Perm&PermWrite == 0 {
			continue
		}
		reg.ID = id
		id++
		set.regions = append(set.regions, reg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading memory map: %w", err)
	}
	return set, nil
}

// parseMapLine parses one line of the form:
//
//	start-end perms offset major:minor inode [pathname]
//
// A valid line recovers ten fields: start, end, the four permission
// bytes (r, w, x, cow-kind), offset, major, minor, and inode. Fewer than
// that, and the line is malformed (spec.md §4.1).
func parseMapLine(line string) (Region, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Region{}, ErrMalformedMapLine
	}

	addrRange := fields[0]
	dash := strings.IndexByte(addrRange, '-')
	if dash < 0 {
		return Region{}, ErrMalformedMapLine
	}
	start, err := strconv.ParseUint(addrRange[:dash], 16, 64)
	if err != nil {
		return Region{}, ErrMalformedMapLine
	}
	end, err := strconv.ParseUint(addrRange[dash+1:], 16, 64)
	if err != nil {
		return Region{}, ErrMalformedMapLine
	}
	if start >= end {
		return Region{}, ErrMalformedMapLine
	}

	permField := fields[1]
	if len(permField) != 4 {
		return Region{}, ErrMalformedMapLine
	}
	var perm Perm
	if permField[0] == 'r' {
		perm |= PermRead
	}
	if permField[1] == 'w' {
		perm |= PermWrite
	}
	if permField[2] == 'x' {
		perm |= PermExec
	}
	var cow CowKind
	switch permField[3] {
	case 'p':
		cow = CowPrivate
	case 's':
		cow = CowShared
	default:
		cow = CowUnknown
	}

	if _, err := strconv.ParseUint(fields[2], 16, 64); err != nil {
		return Region{}, ErrMalformedMapLine
	}
	majMin := strings.SplitN(fields[3], ":", 2)
	if len(majMin) != 2 {
		return Region{}, ErrMalformedMapLine
	}
	if _, err := strconv.ParseUint(majMin[0], 16, 64); err != nil {
		return Region{}, ErrMalformedMapLine
	}
	if _, err := strconv.ParseUint(majMin[1], 16, 64); err != nil {
		return Region{}, ErrMalformedMapLine
	}
	if _, err := strconv.ParseUint(fields[4], 10, 64); err != nil {
		return Region{}, ErrMalformedMapLine
	}

	var path string
	if len(fields) > 5 {
		// Reconstruct the pathname from the original line to preserve
		// embedded spaces: walk past the five leading fields positionally
		// rather than searching for the inode's digits, which can recur
		// inside the address range (e.g. inode 0 matching a hex "0" in
		// start/end).
		offset := 0
		for i := 0; i < 5; i++ {
			offset = skipField(line, offset)
		}
		for offset < len(line) && unicode.IsSpace(rune(line[offset])) {
			offset++
		}
		path = line[offset:]
	}

	return Region{
		Start: start,
		End:   end,
		Perm:  perm,
		Cow:   cow,
		Path:  path,
	}, nil
}

// skipField advances offset past any leading whitespace and then past one
// whitespace-delimited token, returning the offset just after that token.
func skipField(line string, offset int) int {
	for offset < len(line) && unicode.IsSpace(rune(line[offset])) {
		offset++
	}
	for offset < len(line) && !unicode.IsSpace(rune(line[offset])) {
		offset++
	}
	return offset
}
