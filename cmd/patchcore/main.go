// Command patchcore is the entry point invoked by the guest-agent wrapper
// for every goal-state operation (spec §6.1). It parses the CLI surface,
// constructs every component (logging, telemetry, lifecycle, status,
// package manager, operators), and runs the Core Execution Engine once
// before exiting with the Engine's fatal-exit classification.
//
// Grounded on the teacher's cmd/sonobuoy/app (a cobra.Command tree) and
// main.go (Execute(), then map the returned error to an exit code): here
// the invocation has no subcommands, only flat key/value flags (spec
// §6.1), so RootCmd carries the whole core's work in Run rather than
// dispatching to children.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/execconfig"
)

// exitCode carries the Engine's fatal-exit classification out of cobra's
// Run callback, which has no return value of its own.
var exitCode = constants.ExitOkay

var rootCmd = &cobra.Command{
	Use:   "patchcore",
	Short: "In-guest Linux VM patch management core",
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = runCore(cli)
	},
}

var cli *execconfig.CLIArgs

func init() {
	cli = execconfig.BindFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("patchcore: command line error")
		os.Exit(int(constants.ExitCriticalErrorNoLog))
	}
	os.Exit(int(exitCode))
}
