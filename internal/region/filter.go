package region

import (
	"path/filepath"
	"regexp"
)

// FilterKind selects which field of a Region a filter predicate matches
// against.
type FilterKind int

const (
	FilterPathnameEqual FilterKind = iota
	FilterBasenameEqual
	FilterRegexMatch
)

// FilterView is a sub-selection of a RegionSet produced by a predicate.
// It borrows regions without owning them and must not outlive the
// RegionSet it was built from.
type FilterView struct {
	source  *RegionSet
	regions []Region
}

// Regions returns the filtered regions in source order.
func (v *FilterView) Regions() []Region {
	if v == nil {
		return nil
	}
	return v.regions
}

func (v *FilterView) Len() int {
	if v == nil {
		return 0
	}
	return len(v.regions)
}

func match(r Region, kind FilterKind, arg string, rx *regexp.Regexp) bool {
	switch kind {
	case FilterPathnameEqual:
		return r.Path == arg
	case FilterBasenameEqual:
		return filepath.Base(r.Path) == arg
	case FilterRegexMatch:
		return rx != nil && rx.MatchString(r.Path)
	default:
		return false
	}
}

// Filter returns a FilterView of every region in set matching the given
// predicate, or nil if no region matches (spec.md §4.1: "empty filter is
// represented as 'no filter view produced'").
func Filter(set *RegionSet, kind FilterKind, arg string) (*FilterView, error) {
	return filterBy(set, kind, arg, false)
}

// FilterNot is the negation of Filter: it keeps every region that does
// NOT match the predicate.
func FilterNot(set *RegionSet, kind FilterKind, arg string) (*FilterView, error) {
	return filterBy(set, kind, arg, true)
}

func filterBy(set *RegionSet, kind FilterKind, arg string, negate bool) (*FilterView, error) {
	var rx *regexp.Regexp
	if kind == FilterRegexMatch {
		compiled, err := regexp.CompilePOSIX(arg)
		if err != nil {
			return nil, err
		}
		rx = compiled
	}

	var out []Region
	for _, r := range set.Regions() {
		hit := match(r, kind, arg, rx)
		if hit != negate {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &FilterView{source: set, regions: out}, nil
}
