package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwire-scan/memscan/internal/store"
	"github.com/tripwire-scan/memscan/internal/value"
)

func TestPrintJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	err := PrintJSON(buf, map[string]string{"key": "value"})
	require.NoError(t, err)

	var result map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "value", result["key"])
}

func TestPrintError(t *testing.T) {
	buf := new(bytes.Buffer)
	err := PrintError(buf, "test_error", "something went wrong")
	require.NoError(t, err)

	var result map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "test_error", result["error"])
	assert.Equal(t, "something went wrong", result["message"])
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitError)
	assert.Equal(t, 4, ExitNoMatch)
	assert.Equal(t, 5, ExitTargetGone)
}

func TestSetAndGetFlags(t *testing.T) {
	SetFlags(true, true, false)
	assert.True(t, IsJSON())
	assert.True(t, IsQuiet())
	assert.False(t, IsVerbose())

	SetFlags(false, false, true)
	assert.False(t, IsJSON())
	assert.False(t, IsQuiet())
	assert.True(t, IsVerbose())

	// Reset
	SetFlags(false, false, false)
}

func TestPrintResults_PlainLines(t *testing.T) {
	SetFlags(false, false, false)
	defer SetFlags(false, false, false)

	st := store.New()
	st.Push(store.Entry{Addr: 0x1000, V: value.FromWindow([]byte{42, 0, 0, 0, 0, 0, 0, 0}, 8),
		Flags: value.FlagI8 | value.FlagI16 | value.FlagI32 | value.FlagI64 | value.FlagF32 | value.FlagF64})

	buf := new(bytes.Buffer)
	require.NoError(t, PrintResults(buf, st))
	assert.Equal(t, "[1] 0x1000 42\n", buf.String())
}

func TestPrintResults_JSONMode(t *testing.T) {
	SetFlags(true, false, false)
	defer SetFlags(false, false, false)

	st := store.New()
	st.Push(store.Entry{Addr: 0x2000, V: value.FromWindow([]byte{7, 0, 0, 0, 0, 0, 0, 0}, 8),
		Flags: value.FlagI8 | value.FlagI16 | value.FlagI32 | value.FlagI64 | value.FlagF32 | value.FlagF64})

	buf := new(bytes.Buffer)
	require.NoError(t, PrintResults(buf, st))

	var rows []resultRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].ID)
	assert.Equal(t, "0x2000", rows[0].Addr)
	assert.Equal(t, "7", rows[0].Value)
}

func TestPrintResults_NarrowWidthFallsBackToFloat(t *testing.T) {
	SetFlags(false, false, false)
	defer SetFlags(false, false, false)

	st := store.New()
	v := value.FromWindow([]byte{0, 0, 0, 0}, 4)
	st.Push(store.Entry{Addr: 0x3000, V: v, Flags: value.FlagF32})

	buf := new(bytes.Buffer)
	require.NoError(t, PrintResults(buf, st))
	assert.Equal(t, "[1] 0x3000 0\n", buf.String())
}

func TestPrintCount_QuietSuppressesOutput(t *testing.T) {
	SetFlags(false, true, false)
	defer SetFlags(false, false, false)

	st := store.New()
	st.Push(store.Entry{Addr: 0x4000})

	buf := new(bytes.Buffer)
	require.NoError(t, PrintCount(buf, st))
	assert.Empty(t, buf.String())
}

func TestPrintCount_PlainMode(t *testing.T) {
	SetFlags(false, false, false)
	defer SetFlags(false, false, false)

	st := store.New()
	st.Push(store.Entry{Addr: 0x4000})
	st.Push(store.Entry{Addr: 0x4008})

	buf := new(bytes.Buffer)
	require.NoError(t, PrintCount(buf, st))
	assert.Equal(t, "2 candidate(s) remaining\n", buf.String())
}
