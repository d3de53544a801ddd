package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwire-scan/memscan/internal/region"
	"github.com/tripwire-scan/memscan/internal/target"
)

func TestLoadRegions_SelfProcess(t *testing.T) {
	s := NewSession(target.PID(os.Getpid()))
	require.NoError(t, s.LoadRegions())
	require.NotNil(t, s.Regions)
	require.NotZero(t, s.Regions.Len(), "expected at least one readable+writable region for the running test binary")

	for i, r := range s.Regions.Regions() {
		assert.Equalf(t, i+1, r.ID, "region %d ID (1-based, contiguous)", i)
		assert.Lessf(t, r.Start, r.End, "region %d", r.ID)
	}
}

func TestRegionsOf_NilViewUsesWholeSet(t *testing.T) {
	s := NewSession(target.PID(os.Getpid()))
	require.NoError(t, s.LoadRegions())

	got := s.regionsOf(nil)
	assert.Equal(t, s.Regions.Len(), len(got))
}

func TestRegionsOf_FilterViewNarrowsSelection(t *testing.T) {
	s := NewSession(target.PID(os.Getpid()))
	require.NoError(t, s.LoadRegions())

	var named region.Region
	for _, r := range s.Regions.Regions() {
		if r.Path != "" {
			named = r
			break
		}
	}
	if named.Path == "" {
		t.Skip("no named region found in this process's memory map")
	}

	view, err := region.Filter(s.Regions, region.FilterPathnameEqual, named.Path)
	require.NoError(t, err)

	got := s.regionsOf(view)
	require.NotEmpty(t, got, "expected at least one region to match its own pathname")
	assert.LessOrEqual(t, len(got), s.Regions.Len(), "filtered selection must not exceed the full set")

	for _, r := range got {
		assert.Equal(t, named.Path, r.Path)
	}
}
