package execconfig

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// BindEnvOverrides lets a small set of CLI flags be supplied via
// PATCHCORE_-prefixed environment variables instead of argv, for the
// auto-assessment systemd unit (constants.AutoAssessmentUnitName), which
// invokes this binary outside of the wrapper's own process launch and
// finds environment variables more natural to set than a long argv.
// Grounded on the teacher's pkg/worker/config.go, which binds
// MASTER_URL/NODE_NAME/RESULTS_DIR into the sidecar worker's config the
// same way -- applied here to a flag struct instead of a plugin.WorkerConfig.
func BindEnvOverrides(a *CLIArgs) error {
	v := viper.New()
	v.SetEnvPrefix("PATCHCORE")
	for _, key := range []string{"sequencenumber", "environmentsettings", "configsettings", "protectedconfigsettings", "autoassessonly", "recorderenabled", "emulatorenabled"} {
		if err := v.BindEnv(key); err != nil {
			return errors.Wrapf(err, "binding env override for %q", key)
		}
	}

	if a.SequenceNumber == 0 && v.IsSet("sequencenumber") {
		a.SequenceNumber = v.GetInt("sequencenumber")
	}
	if a.EnvironmentSettings == "" && v.IsSet("environmentsettings") {
		a.EnvironmentSettings = v.GetString("environmentsettings")
	}
	if a.ConfigSettings == "" && v.IsSet("configsettings") {
		a.ConfigSettings = v.GetString("configsettings")
	}
	if a.ProtectedConfigSettings == "" && v.IsSet("protectedconfigsettings") {
		a.ProtectedConfigSettings = v.GetString("protectedconfigsettings")
	}
	if !a.AutoAssessOnly && v.IsSet("autoassessonly") {
		a.AutoAssessOnly = v.GetBool("autoassessonly")
	}
	if !a.RecorderEnabled && v.IsSet("recorderenabled") {
		a.RecorderEnabled = v.GetBool("recorderenabled")
	}
	if !a.EmulatorEnabled && v.IsSet("emulatorenabled") {
		a.EmulatorEnabled = v.GetBool("emulatorenabled")
	}
	return nil
}
