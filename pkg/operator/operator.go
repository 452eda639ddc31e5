// Package operator implements the Patch Operators (spec component H): a
// common abstract operator contract plus the Assessor, Installer, and
// ConfigurePatcher variants, and the retry-driving loop described in spec
// §4.2. Grounded on the teacher's pkg/plugin.Interface/base.go abstract
// plugin contract (ShouldRun-style gating, a common Run/Monitor/Cleanup
// shape every driver fills in) generalized here to the three patch
// operations instead of Kubernetes conformance plugins.
package operator

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/faults"
	"github.com/azure/patchcore/pkg/lifecycle"
	"github.com/azure/patchcore/pkg/stopwatch"
	"github.com/azure/patchcore/pkg/telemetry"
)

// Operator is the common abstract contract every patch operation
// implements (spec §4.2).
type Operator interface {
	Name() constants.Operation
	ShouldRun() bool
	StartRetryableUnit() error
	OnTerminalException(err error)
	SetFinalStatus()
	MaxRetry() int
}

// Driver runs an Operator's retry loop (spec §4.2 "Driver loop"),
// consulting the Lifecycle Manager's status check each attempt and
// emitting a single perf-log telemetry event at the end.
type Driver struct {
	Lifecycle    *lifecycle.Manager
	Telemetry    *telemetry.Writer
	MachineInfo  string
	SequenceNumber int
}

// StartWithRetries executes op's driver loop and returns nil on success,
// nil on exhausted retries (after handing the last error to
// op.OnTerminalException), or a typed fault from pkg/faults if one
// short-circuited the loop.
func (d *Driver) StartWithRetries(op Operator) error {
	if !op.ShouldRun() {
		return nil
	}

	sw := &stopwatch.Stopwatch{}
	sw.Start()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < op.MaxRetry(); attempt++ {
		attempts = attempt + 1

		if d.Lifecycle != nil {
			ok, err := d.Lifecycle.LifecycleStatusCheck(d.SequenceNumber)
			if err != nil {
				logrus.WithError(err).Warn("operator: lifecycle status check failed, continuing")
			} else if !ok {
				return &faults.Supersession{PreviousSequence: d.SequenceNumber}
			}
		}

		err := op.StartRetryableUnit()
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err

		if faults.IsPrivileged(err) {
			return err
		}

		logrus.WithError(err).WithField("attempt", attempt+1).Warn("operator: attempt failed, retrying")
		envlayer.Sleep(time.Duration(2*(attempt+1)) * time.Second)
	}

	sw.Stop()

	if lastErr != nil {
		op.OnTerminalException(lastErr)
	}
	op.SetFinalStatus()

	d.emitPerfLog(op, attempts, lastErr, sw.Elapsed())
	return nil
}

func (d *Driver) emitPerfLog(op Operator, attempts int, lastErr error, elapsed time.Duration) {
	if d.Telemetry == nil {
		return
	}
	status := "Success"
	if lastErr != nil {
		status = "Error"
	}
	message := "task=" + string(op.Name()) + " status=" + status + " retries=" + strconv.Itoa(attempts) + " machine=" + d.MachineInfo + " elapsed=" + elapsed.String()
	if lastErr != nil {
		message += " error=" + lastErr.Error()
	}
	_ = d.Telemetry.WriteEvent(string(op.Name()), "perf", message, "")
}
