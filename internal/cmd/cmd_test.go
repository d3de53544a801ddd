package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwire-scan/memscan/internal/engine"
	"github.com/tripwire-scan/memscan/internal/region"
	"github.com/tripwire-scan/memscan/internal/scan"
	"github.com/tripwire-scan/memscan/internal/value"
)

func findCommand(root *cobra.Command, use string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == use {
			return c
		}
	}
	return nil
}

func TestSubcommandsRegistered(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"scan", "list-regions", "config"} {
		assert.NotNilf(t, findCommand(root, name), "%q subcommand not registered on root", name)
	}
}

func TestScanCommandFlags(t *testing.T) {
	root := NewRootCmd()
	scanCmd := findCommand(root, "scan")
	require.NotNil(t, scanCmd)

	for _, name := range []string{"pid", "path", "basename", "regex", "predicate", "value", "lower", "upper", "range-flag", "reader", "unaligned", "narrow"} {
		assert.NotNilf(t, scanCmd.Flags().Lookup(name), "--%s flag not registered on scan command", name)
	}
}

func TestConfigSubcommandsRegistered(t *testing.T) {
	root := NewRootCmd()
	configCmd := findCommand(root, "config")
	require.NotNil(t, configCmd)

	names := map[string]bool{}
	for _, c := range configCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"get", "set", "path"} {
		assert.Truef(t, names[name], "'config %s' subcommand not found", name)
	}
}

func TestResolveReaderPref(t *testing.T) {
	pref, err := resolveReaderPref("", "procmem")
	require.NoError(t, err)
	assert.Equal(t, engine.ReaderProcMem, pref)

	pref, err = resolveReaderPref("ptrace", "auto")
	require.NoError(t, err)
	assert.Equal(t, engine.ReaderPtrace, pref)

	_, err = resolveReaderPref("telepathy", "auto")
	assert.Error(t, err)
}

func TestParseScanPredicateKind(t *testing.T) {
	pred, err := parseScanPredicateKind("ge")
	require.NoError(t, err)
	assert.Equal(t, scan.Ge, pred)

	_, err = parseScanPredicateKind("nonsense")
	assert.Error(t, err)
}

func TestParseRangeFlag(t *testing.T) {
	flag, err := parseRangeFlag("gele")
	require.NoError(t, err)
	assert.Equal(t, scan.GeLe, flag)

	_, err = parseRangeFlag("nonsense")
	assert.Error(t, err)
}

func TestBuildScanPredicate_Eq(t *testing.T) {
	pred, err := buildScanPredicate("eq", "42", "", "", "")
	require.NoError(t, err)

	v := value.FromWindow([]byte{42, 0, 0, 0, 0, 0, 0, 0}, 8)
	assert.True(t, pred(v))
}

func TestBuildScanPredicate_Range(t *testing.T) {
	pred, err := buildScanPredicate("range", "", "10", "20", "gele")
	require.NoError(t, err)

	v := value.FromWindow([]byte{15, 0, 0, 0, 0, 0, 0, 0}, 8)
	assert.True(t, pred(v))
}

func TestBuildNarrowPredicate_Stateful(t *testing.T) {
	pred, err := buildNarrowPredicate("unchanged")
	require.NoError(t, err)
	assert.NotNil(t, pred)
}

func TestBuildNarrowPredicate_NeedleBased(t *testing.T) {
	pred, err := buildNarrowPredicate("ne:7")
	require.NoError(t, err)
	assert.NotNil(t, pred)

	_, err = buildNarrowPredicate("not-a-valid-step")
	assert.Error(t, err)
}

func TestPermString(t *testing.T) {
	assert.Equal(t, "rw-", permString(region.PermRead|region.PermWrite))
	assert.Equal(t, "r-x", permString(region.PermRead|region.PermExec))
	assert.Equal(t, "---", permString(0))
}
