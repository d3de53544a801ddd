// Package output renders scan/narrow results and controls the CLI's
// --json/--quiet/--verbose surface.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tripwire-scan/memscan/internal/store"
	"github.com/tripwire-scan/memscan/internal/value"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitNoMatch    = 4
	ExitTargetGone = 5
)

var (
	flagJSON    bool
	flagQuiet   bool
	flagVerbose bool
)

// SetFlags is called by the root command's PersistentPreRun to propagate flag values.
func SetFlags(jsonMode, quiet, verbose bool) {
	flagJSON = jsonMode
	flagQuiet = quiet
	flagVerbose = verbose
}

// IsJSON returns true when --json mode is active.
func IsJSON() bool { return flagJSON }

// IsQuiet returns true when --quiet mode is active.
func IsQuiet() bool { return flagQuiet }

// IsVerbose returns true when --verbose mode is active.
func IsVerbose() bool { return flagVerbose }

// PrintJSON marshals v as JSON and writes it to w.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintError writes a JSON error envelope to w.
func PrintError(w io.Writer, code string, message string) error {
	return PrintJSON(w, map[string]string{
		"error":   code,
		"message": message,
	})
}

// resultRow is the JSON shape of one match: id, addr, and the single
// rendering widestValue picks from the entry's flags.
type resultRow struct {
	ID    int    `json:"id"`
	Addr  string `json:"addr"`
	Value string `json:"value"`
}

// widestValue renders an entry's value using its widest still-valid
// integer interpretation, falling back to a float rendering if no
// integer width survived (spec.md §6's `[id] addr value` line).
func widestValue(e store.Entry) string {
	switch {
	case e.Flags.Has(value.FlagI64):
		return fmt.Sprintf("%d", e.V.I64())
	case e.Flags.Has(value.FlagI32):
		return fmt.Sprintf("%d", e.V.I32())
	case e.Flags.Has(value.FlagI16):
		return fmt.Sprintf("%d", e.V.I16())
	case e.Flags.Has(value.FlagI8):
		return fmt.Sprintf("%d", e.V.I8())
	case e.Flags.Has(value.FlagF64):
		return fmt.Sprintf("%g", e.V.F64())
	case e.Flags.Has(value.FlagF32):
		return fmt.Sprintf("%g", e.V.F32())
	default:
		return "?"
	}
}

// PrintResults renders a store's entries to w as either plain
// `[id] addr value` lines (one per entry, 1-based display id) or, in
// --json mode, a JSON array of the same fields.
func PrintResults(w io.Writer, st *store.List) error {
	if flagJSON {
		rows := make([]resultRow, 0, st.Len())
		id := 1
		st.Range(func(e store.Entry) {
			rows = append(rows, resultRow{ID: id, Addr: fmt.Sprintf("%#x", e.Addr), Value: widestValue(e)})
			id++
		})
		return PrintJSON(w, rows)
	}

	id := 1
	var err error
	st.Range(func(e store.Entry) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, "[%d] %#x %s\n", id, e.Addr, widestValue(e))
		id++
	})
	return err
}

// PrintCount writes a one-line summary of the store's size, used by the
// scan command after its last pass in non-quiet mode.
func PrintCount(w io.Writer, st *store.List) error {
	if flagQuiet {
		return nil
	}
	if flagJSON {
		return PrintJSON(w, map[string]int{"count": st.Len()})
	}
	_, err := fmt.Fprintf(w, "%d candidate(s) remaining\n", st.Len())
	return err
}
