package region

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `00400000-00452000 r-xp 00000000 08:02 1234   /usr/bin/tool
00651000-00652000 rw-p 00051000 08:02 1234   /usr/bin/tool
7f0000000000-7f0000021000 rw-p 00000000 00:00 0      [heap]
7f0a00000000-7f0a00200000 r--p 00000000 08:02 5678   /usr/lib/libc.so.6
7f0a00200000-7f0a00400000 rw-p 00200000 08:02 5678   /usr/lib/libc.so.6
7f0b00000000-7f0b00100000 rw-p 00000000 08:02 9012   /usr/local/lib/libfoo.so
7fffffff0000-7fffffff1000 rw-p 00000000 00:00 0      [stack]
`

func TestParseMaps_ReadWriteOnly(t *testing.T) {
	set, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	// Only rw regions survive: r-xp and r--p are dropped.
	for _, r := range set.Regions() {
		assert.NotZero(t, r.Perm&PermRead, "region %+v is not readable", r)
		assert.NotZero(t, r.Perm&PermWrite, "region %+v is not writable", r)
	}
	assert.Equal(t, 5, set.Len())
}

func TestParseMaps_IDsAreOneBasedAndContiguous(t *testing.T) {
	set, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	for i, r := range set.Regions() {
		assert.Equal(t, i+1, r.ID)
	}
}

func TestParseMaps_StartBeforeEnd(t *testing.T) {
	set, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	for _, r := range set.Regions() {
		assert.Less(t, r.Start, r.End)
	}
}

func TestParseMaps_Malformed(t *testing.T) {
	_, err := ParseMaps(strings.NewReader("not a valid line at all\n"))
	assert.ErrorIs(t, err, ErrMalformedMapLine)
}

// TestFilter_Basename is spec.md §8 E4, literally: three regions with
// paths /usr/lib/libc.so.6, /usr/local/lib/libfoo.so, and [heap];
// filter(basename="libc.so.6") yields one region, filter_not yields two.
func TestFilter_Basename(t *testing.T) {
	const e4Maps = `7f0a00200000-7f0a00400000 rw-p 00000000 08:02 5678   /usr/lib/libc.so.6
7f0b00000000-7f0b00100000 rw-p 00000000 08:02 9012   /usr/local/lib/libfoo.so
7f0000000000-7f0000021000 rw-p 00000000 00:00 0      [heap]
`
	set, err := ParseMaps(strings.NewReader(e4Maps))
	require.NoError(t, err)

	view, err := Filter(set, FilterBasenameEqual, "libc.so.6")
	require.NoError(t, err)
	require.Equal(t, 1, view.Len())

	notView, err := FilterNot(set, FilterBasenameEqual, "libc.so.6")
	require.NoError(t, err)
	assert.Equal(t, 2, notView.Len())
}

func TestFilter_EmptyViewIsNil(t *testing.T) {
	set, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	view, err := Filter(set, FilterBasenameEqual, "does-not-exist.so")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestFilter_Regex(t *testing.T) {
	set, err := ParseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	view, err := Filter(set, FilterRegexMatch, `^/usr/`)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Len())
}
