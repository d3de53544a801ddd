package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripwire-scan/memscan/internal/engine"
	"github.com/tripwire-scan/memscan/internal/output"
	"github.com/tripwire-scan/memscan/internal/region"
	"github.com/tripwire-scan/memscan/internal/target"
)

var (
	regionsPID      int32
	regionsPath     string
	regionsBasename string
	regionsRegex    string
)

func addRegionsCommand(parent *cobra.Command) {
	regionsCmd := &cobra.Command{
		Use:   "list-regions",
		Short: "Parse the target's memory map and list its readable+writable regions",
		RunE:  runRegions,
	}

	flags := regionsCmd.Flags()
	flags.Int32Var(&regionsPID, "pid", 0, "Target process id (required)")
	flags.StringVar(&regionsPath, "path", "", "Restrict to regions with this exact pathname")
	flags.StringVar(&regionsBasename, "basename", "", "Restrict to regions whose path basename equals this")
	flags.StringVar(&regionsRegex, "regex", "", "Restrict to regions whose pathname matches this regular expression")

	_ = regionsCmd.MarkFlagRequired("pid")
	parent.AddCommand(regionsCmd)
}

func runRegions(cmd *cobra.Command, args []string) error {
	s := engine.NewSession(target.PID(regionsPID))
	if err := s.LoadRegions(); err != nil {
		return fmt.Errorf("loading target regions: %w", err)
	}

	view, err := resolveFilter(s, regionsPath, regionsBasename, regionsRegex)
	if err != nil {
		return err
	}
	regions := s.Regions.Regions()
	if view != nil {
		regions = view.Regions()
	}

	if output.IsJSON() {
		return output.PrintJSON(cmd.OutOrStdout(), regions)
	}
	for _, r := range regions {
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %#x-%#x %s %s\n", r.ID, r.Start, r.End, permString(r.Perm), r.Path)
	}
	return nil
}

func permString(p region.Perm) string {
	b := []byte("---")
	if p&region.PermRead != 0 {
		b[0] = 'r'
	}
	if p&region.PermWrite != 0 {
		b[1] = 'w'
	}
	if p&region.PermExec != 0 {
		b[2] = 'x'
	}
	return string(b)
}
