package execconfig

import "github.com/spf13/pflag"

// CLIArgs holds the raw flag values described in spec §6.1, before they are
// decoded/validated into an ExecutionConfig.
type CLIArgs struct {
	SequenceNumber          int
	EnvironmentSettings     string
	ConfigSettings          string
	ProtectedConfigSettings string
	AutoAssessOnly          bool
	RecorderEnabled         bool
	EmulatorEnabled         bool
}

// BindFlags registers the core's CLI surface onto fs, matching the
// teacher's habit of binding flags onto a passed-in FlagSet rather than a
// package global (cmd/sonobuoy/app/run.go's *RunConfig pattern).
func BindFlags(fs *pflag.FlagSet) *CLIArgs {
	a := &CLIArgs{}
	fs.IntVar(&a.SequenceNumber, "sequenceNumber", 0, "monotonically increasing goal-state sequence number")
	fs.StringVar(&a.EnvironmentSettings, "environmentSettings", "", "base64-encoded JSON of folder paths and capability flags")
	fs.StringVar(&a.ConfigSettings, "configSettings", "", "base64-encoded JSON of the requested operation and its parameters")
	fs.StringVar(&a.ProtectedConfigSettings, "protectedConfigSettings", "", "base64-encoded JSON, currently unused by the core")
	fs.BoolVar(&a.AutoAssessOnly, "autoAssessOnly", false, "run only the Assessment operation, under the auto-assessment lifecycle gate")
	fs.BoolVar(&a.RecorderEnabled, "recorderEnabled", false, "internal test knob")
	fs.BoolVar(&a.EmulatorEnabled, "emulatorEnabled", false, "internal test knob: run the package manager adapter in dry-run mode")
	return a
}
