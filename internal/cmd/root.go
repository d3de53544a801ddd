package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tripwire-scan/memscan/internal/config"
	"github.com/tripwire-scan/memscan/internal/output"
)

var Version = "dev"

var (
	jsonFlag    bool
	verboseFlag bool
	quietFlag   bool
	ConfigDir   string
)

func NewRootCmd() *cobra.Command {
	cmd := newRootCmd()
	addScanCommand(cmd)
	addRegionsCommand(cmd)
	addConfigCommands(cmd)
	return cmd
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "memscan",
		Short:         "Attach to a running process and scan/narrow its memory",
		Long:          "memscan — a live-memory value-narrowing scanner for an already-attached, stopped target process.",
		Version:       fmt.Sprintf("memscan v%s", Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag && quietFlag {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			if jsonFlag {
				quietFlag = true
			}
			output.SetFlags(jsonFlag, quietFlag, verboseFlag)
			if verboseFlag {
				logrus.SetLevel(logrus.DebugLevel)
			}
			config.SetConfigDir(ConfigDir)
			return nil
		},
	}

	pflags := rootCmd.PersistentFlags()
	pflags.BoolVarP(&jsonFlag, "json", "j", false, "Output as JSON")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug-level engine logging on stderr")
	pflags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	pflags.StringVar(&ConfigDir, "config-dir", "", "Override config directory (default: ~/.memscan)")

	if v := os.Getenv("MEMSCAN_HOME"); v != "" && ConfigDir == "" {
		ConfigDir = v
	}

	return rootCmd
}

func Execute() error {
	cmd := NewRootCmd()
	return cmd.Execute()
}
