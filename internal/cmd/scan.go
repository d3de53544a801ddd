package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tripwire-scan/memscan/internal/config"
	"github.com/tripwire-scan/memscan/internal/engine"
	"github.com/tripwire-scan/memscan/internal/narrow"
	"github.com/tripwire-scan/memscan/internal/output"
	"github.com/tripwire-scan/memscan/internal/region"
	"github.com/tripwire-scan/memscan/internal/scan"
	"github.com/tripwire-scan/memscan/internal/target"
	"github.com/tripwire-scan/memscan/internal/value"
)

var (
	scanPID        int32
	scanPath       string
	scanBasename   string
	scanRegex      string
	scanPredicate  string
	scanValue      string
	scanLower      string
	scanUpper      string
	scanRangeFlag  string
	scanReader     string
	scanUnaligned  bool
	scanNarrowStep []string
)

// addScanCommand wires the whole spec.md §4.7 outer cycle — an initial
// scan pass followed by zero or more narrow passes — into one
// invocation, since spec.md §6 "Persisted state: none" rules out a
// separate narrow subcommand resuming a previous run's match store.
func addScanCommand(parent *cobra.Command) {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a target's memory for a value, then optionally narrow the results",
		Long: `Run a scan pass against an attached, stopped target process and print the
resulting match store. Repeat --narrow to chain re-read/drop passes onto the
same store in one invocation (scan and narrow results never touch disk
between passes, or between invocations).`,
		RunE: runScan,
	}

	flags := scanCmd.Flags()
	flags.Int32Var(&scanPID, "pid", 0, "Target process id (required)")
	flags.StringVar(&scanPath, "path", "", "Restrict to regions with this exact pathname")
	flags.StringVar(&scanBasename, "basename", "", "Restrict to regions whose path basename equals this")
	flags.StringVar(&scanRegex, "regex", "", "Restrict to regions whose pathname matches this regular expression")
	flags.StringVar(&scanPredicate, "predicate", "eq", "Comparison: eq, ne, lt, le, gt, ge, range")
	flags.StringVar(&scanValue, "value", "", "Needle for eq/ne/lt/le/gt/ge")
	flags.StringVar(&scanLower, "lower", "", "Lower bound needle for --predicate range")
	flags.StringVar(&scanUpper, "upper", "", "Upper bound needle for --predicate range")
	flags.StringVar(&scanRangeFlag, "range-flag", "gele", "Range boundary inclusivity: gtlt, gelt, gtle, gele")
	flags.StringVar(&scanReader, "reader", "", "Reader override: auto, procmem, ptrace (default: config)")
	flags.BoolVar(&scanUnaligned, "unaligned", false, "Step by one byte instead of the native word size")
	flags.StringArrayVar(&scanNarrowStep, "narrow", nil, "Narrow step, applied in order after the scan: changed, unchanged, increased, decreased, or eq:VALUE (ne/lt/le/gt/ge also accepted)")

	_ = scanCmd.MarkFlagRequired("pid")
	parent.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s := engine.NewSession(target.PID(scanPID))
	if err := s.LoadRegions(); err != nil {
		return fmt.Errorf("loading target regions: %w", err)
	}

	readerPref, err := resolveReaderPref(scanReader, cfg.DefaultReader)
	if err != nil {
		return err
	}
	s.ReaderPref = readerPref

	align := scan.Aligned
	if scanUnaligned || cfg.DefaultAlignment == "unaligned" {
		align = scan.Unaligned
	}

	view, err := resolveFilter(s, scanPath, scanBasename, scanRegex)
	if err != nil {
		return err
	}

	pred, err := buildScanPredicate(scanPredicate, scanValue, scanLower, scanUpper, scanRangeFlag)
	if err != nil {
		return err
	}

	if err := s.Scan(view, align, pred); err != nil {
		return fmt.Errorf("scan pass: %w", err)
	}

	for _, step := range scanNarrowStep {
		narrowPred, err := buildNarrowPredicate(step)
		if err != nil {
			return fmt.Errorf("narrow step %q: %w", step, err)
		}
		if err := s.Narrow(narrowPred); err != nil {
			return fmt.Errorf("narrow step %q: %w", step, err)
		}
	}

	if err := output.PrintResults(cmd.OutOrStdout(), s.Store); err != nil {
		return err
	}
	return output.PrintCount(cmd.ErrOrStderr(), s.Store)
}

func resolveReaderPref(flagVal, configVal string) (engine.ReaderPreference, error) {
	v := flagVal
	if v == "" {
		v = configVal
	}
	switch v {
	case "", "auto":
		return engine.ReaderAuto, nil
	case "procmem":
		return engine.ReaderProcMem, nil
	case "ptrace":
		return engine.ReaderPtrace, nil
	default:
		return engine.ReaderAuto, fmt.Errorf("unknown reader preference %q", v)
	}
}

func resolveFilter(s *engine.Session, path, basename, regex string) (*region.FilterView, error) {
	set := 0
	for _, v := range []string{path, basename, regex} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("--path, --basename, and --regex are mutually exclusive")
	}

	switch {
	case path != "":
		return region.Filter(s.Regions, region.FilterPathnameEqual, path)
	case basename != "":
		return region.Filter(s.Regions, region.FilterBasenameEqual, basename)
	case regex != "":
		return region.Filter(s.Regions, region.FilterRegexMatch, regex)
	default:
		return nil, nil
	}
}

func buildScanPredicate(kind, val, lower, upper, rangeFlag string) (func(value.Value) bool, error) {
	if kind == "range" {
		lowerNeedle, err := value.ParseNeedle(lower)
		if err != nil {
			return nil, fmt.Errorf("parsing --lower: %w", err)
		}
		upperNeedle, err := value.ParseNeedle(upper)
		if err != nil {
			return nil, fmt.Errorf("parsing --upper: %w", err)
		}
		flag, err := parseRangeFlag(rangeFlag)
		if err != nil {
			return nil, err
		}
		return scan.BuildRangePredicate(lowerNeedle, upperNeedle, flag)
	}

	pred, err := parseScanPredicateKind(kind)
	if err != nil {
		return nil, err
	}
	needle, err := value.ParseNeedle(val)
	if err != nil {
		return nil, fmt.Errorf("parsing --value: %w", err)
	}
	return scan.BuildPredicate(pred, needle), nil
}

func parseScanPredicateKind(kind string) (scan.Predicate, error) {
	switch kind {
	case "eq":
		return scan.Eq, nil
	case "ne":
		return scan.Ne, nil
	case "lt":
		return scan.Lt, nil
	case "le":
		return scan.Le, nil
	case "gt":
		return scan.Gt, nil
	case "ge":
		return scan.Ge, nil
	default:
		return 0, fmt.Errorf("unknown --predicate %q", kind)
	}
}

func parseRangeFlag(s string) (scan.RangeFlag, error) {
	switch s {
	case "gtlt":
		return scan.GtLt, nil
	case "gelt":
		return scan.GeLt, nil
	case "gtle":
		return scan.GtLe, nil
	case "gele":
		return scan.GeLe, nil
	default:
		return 0, fmt.Errorf("unknown --range-flag %q", s)
	}
}

// buildNarrowPredicate parses one --narrow value: either a stateful
// predicate name, or "kind:needle" for an ordinary scan predicate run
// statelessly via narrow.FromWindowPredicate (spec.md §4.7 allows
// narrowing by an ordinary needle predicate, not only the four
// stateful ones).
func buildNarrowPredicate(step string) (narrow.Predicate, error) {
	switch step {
	case "changed":
		return narrow.Changed, nil
	case "unchanged":
		return narrow.Unchanged, nil
	case "increased":
		return narrow.Increased, nil
	case "decreased":
		return narrow.Decreased, nil
	}

	kind, val, ok := strings.Cut(step, ":")
	if !ok {
		return nil, fmt.Errorf("expected changed/unchanged/increased/decreased or kind:needle, got %q", step)
	}
	predKind, err := parseScanPredicateKind(kind)
	if err != nil {
		return nil, err
	}
	needle, err := value.ParseNeedle(val)
	if err != nil {
		return nil, fmt.Errorf("parsing needle %q: %w", val, err)
	}
	return narrow.FromWindowPredicate(scan.BuildPredicate(predKind, needle)), nil
}
