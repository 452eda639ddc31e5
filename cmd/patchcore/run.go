package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/engine"
	"github.com/azure/patchcore/pkg/errlog"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/imds"
	"github.com/azure/patchcore/pkg/lifecycle"
	"github.com/azure/patchcore/pkg/operator"
	"github.com/azure/patchcore/pkg/pkgmanager"
	"github.com/azure/patchcore/pkg/statusfile"
	"github.com/azure/patchcore/pkg/systemdunit"
	"github.com/azure/patchcore/pkg/telemetry"
)

// runCore builds every component from cli and runs the Engine once. Split
// out from the cobra Run callback so it can be unit-shaped around a plain
// *execconfig.CLIArgs rather than a *cobra.Command.
func runCore(cli *execconfig.CLIArgs) constants.ExitCode {
	if err := execconfig.BindEnvOverrides(cli); err != nil {
		logrus.WithError(err).Error("patchcore: binding environment overrides")
		return constants.ExitCriticalErrorNoLog
	}

	env, err := execconfig.DecodeEnvironmentSettings(cli.EnvironmentSettings)
	if err != nil {
		logrus.WithError(err).Error("patchcore: decoding environmentSettings")
		return constants.ExitCriticalErrorNoLog
	}

	logger, err := errlog.NewFileLogger(filepath.Join(env.LogFolder, "patchcore.log"))
	if err != nil {
		logrus.WithError(err).Error("patchcore: opening log file")
		return constants.ExitCriticalErrorNoLog
	}
	defer logger.Close()

	cfg, err := execconfig.New(cli.SequenceNumber, env, cli.ConfigSettings, cli.AutoAssessOnly, cli.RecorderEnabled, cli.EmulatorEnabled)
	if err != nil {
		errlog.LogError(logger.Logger, err)
		return constants.ExitCriticalErrorNoStatus
	}

	telemetryWriter := telemetry.NewWriter(env.EventsFolder, env.TelemetrySupported)
	logger.SetTelemetryWriter(string(cfg.Operation), telemetryWriter)

	if cfg.CloudType == "" {
		if cfg.ExecAutoAssessOnly {
			cfg.CloudType = imds.DetectCloudType()
		} else {
			cfg.CloudType = constants.CloudAzure
		}
	}

	var lifecycleManager *lifecycle.Manager
	if cfg.CloudType == constants.CloudArc {
		lifecycleManager = lifecycle.NewArcLifecycleManager(env.ConfigFolder)
	} else {
		lifecycleManager = lifecycle.NewAzureLifecycleManager(env.ConfigFolder)
	}

	statusPath := filepath.Join(env.StatusFolder, strconv.Itoa(cfg.SequenceNumber)+".status")
	status := statusfile.NewHandler(statusPath, "patchcore", cfg.ActivityID)
	status.SetCurrentOperation(cfg.Operation)

	proceed, err := startCheck(lifecycleManager, cfg)
	if err != nil {
		errlog.LogError(logger.Logger, err)
		return constants.ExitCriticalError
	}
	if !proceed {
		logrus.Info("patchcore: another process already owns execution for this sequence, exiting")
		return constants.ExitOkay
	}
	defer func() {
		if err := lifecycleManager.ReleaseExecution(); err != nil {
			errlog.LogError(logger.Logger, err)
		}
	}()

	adapter, err := pkgmanager.Select(cfg.EmulatorEnabled, env.TempFolder)
	if err != nil {
		errlog.LogError(logger.Logger, err)
		status.AddError(constants.SubstatusConfigurePatchingSummary, constants.ErrCodePackageManagerFailure, err.Error())
		return constants.ExitCriticalError
	}

	eng := &engine.Engine{
		Config:    cfg,
		Status:    status,
		Lifecycle: lifecycleManager,
		Adapter:   adapter,
		Unit:      systemdunit.New(constants.AutoAssessmentUnitName),
		Driver: &operator.Driver{
			Lifecycle:      lifecycleManager,
			Telemetry:      telemetryWriter,
			MachineInfo:    machineInfo(),
			SequenceNumber: cfg.SequenceNumber,
		},
	}

	return eng.Run()
}

// startCheck runs the appropriate Lifecycle Manager gate depending on
// whether this invocation is an auto-assessment-only run (spec §4.5.1,
// §4.5.2).
func startCheck(m *lifecycle.Manager, cfg *execconfig.ExecutionConfig) (bool, error) {
	if cfg.ExecAutoAssessOnly {
		stop := make(chan struct{})
		return m.AutoAssessmentExecutionStartCheck(cfg.SequenceNumber, string(cfg.Operation), stop)
	}
	return m.ExecutionStartCheck(cfg.SequenceNumber, string(cfg.Operation))
}

func machineInfo() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
