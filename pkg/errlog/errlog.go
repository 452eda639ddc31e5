// Package errlog provides the File Logger and Composite Logger (spec
// component B): a rolling log file tied to a logrus.Logger, plus a hook that
// tees selected entries into the telemetry event pipeline. Grounded on the
// teacher's pkg/errlog (SetLevel/LogError, a package-global debug switch)
// and on github.com/rifflock/lfshook, which the teacher imports to attach a
// second logrus output -- here repurposed to feed the Telemetry Writer
// instead of a second file.
package errlog

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// DebugOutput controls whether LogError prints a stack trace alongside the
// error message.
var DebugOutput = false

// TelemetryEmitter is the narrow interface the Composite Logger needs from
// the Telemetry Writer. Defined here (the consumer side) rather than in the
// telemetry package, so errlog never imports telemetry -- the one-way
// ownership design note 9 calls for: the logger holds a handle to the
// writer, set after both are constructed, and neither package imports the
// other's concrete types.
type TelemetryEmitter interface {
	EmitLogLine(taskName, level, message string)
}

// FileLogger is a logrus.Logger writing to a single rolling file. Rotation
// is a simple size-triggered rename-and-reopen, matching the teacher's
// preference for a small hand-rolled helper over pulling in a rotation
// library for a concern this narrow (no third-party rotation library is
// used anywhere in the pack; this is a standard-library implementation by
// necessity, not convenience -- see DESIGN.md).
type FileLogger struct {
	*logrus.Logger
	path        string
	maxBytes    int64
	file        *os.File
	telemetry   TelemetryEmitter
	taskName    string
	hookMinimum logrus.Level
}

const defaultMaxLogBytes = 5 * 1024 * 1024

// NewFileLogger opens (creating if necessary) the log file at path and
// returns a Logger writing to it in logrus's default text format.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log file %q", path)
	}

	l := logrus.New()
	l.SetOutput(f)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &FileLogger{
		Logger:      l,
		path:        path,
		maxBytes:    defaultMaxLogBytes,
		file:        f,
		hookMinimum: logrus.WarnLevel,
	}, nil
}

// SetTelemetryWriter attaches the telemetry emitter this logger tees into.
// Called once, after both the logger and the telemetry writer have been
// constructed, per design note 9 -- this is the one-way handle, never the
// reverse.
func (fl *FileLogger) SetTelemetryWriter(taskName string, emitter TelemetryEmitter) {
	fl.telemetry = emitter
	fl.taskName = taskName
	fl.Logger.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.PanicLevel: teeWriter{fl},
		logrus.FatalLevel: teeWriter{fl},
		logrus.ErrorLevel: teeWriter{fl},
		logrus.WarnLevel:  teeWriter{fl},
	}, &logrus.TextFormatter{DisableTimestamp: true}))
}

// teeWriter adapts FileLogger into an io.Writer so lfshook.NewHook (which
// is built around WriterMap) can drive EmitLogLine for every formatted
// entry at or above fl.hookMinimum.
type teeWriter struct{ fl *FileLogger }

func (t teeWriter) Write(p []byte) (int, error) {
	if t.fl.telemetry != nil {
		t.fl.telemetry.EmitLogLine(t.fl.taskName, "warn-or-above", string(p))
	}
	return len(p), nil
}

// Rotate renames the current log file aside and reopens a fresh one if it
// has crossed maxBytes. Call before each write-heavy operation.
func (fl *FileLogger) Rotate() error {
	fi, err := fl.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat log file")
	}
	if fi.Size() < fl.maxBytes {
		return nil
	}

	if err := fl.file.Close(); err != nil {
		return errors.Wrap(err, "closing log file for rotation")
	}
	if err := os.Rename(fl.path, fl.path+".1"); err != nil {
		return errors.Wrap(err, "rotating log file")
	}

	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "reopening log file after rotation")
	}
	fl.file = f
	fl.Logger.SetOutput(f)
	return nil
}

// Close flushes and closes the underlying log file.
func (fl *FileLogger) Close() error {
	return fl.file.Close()
}

// LogError logs err, optionally with a stack trace field when DebugOutput
// is set -- unchanged in shape from the teacher's package-level helper.
func LogError(log *logrus.Logger, err error) {
	if err == nil {
		return
	}
	if DebugOutput {
		log.WithField("trace", fmt.Sprintf("%+v", err)).Error(err)
	} else {
		log.Error(err.Error())
	}
}

// SetLevel parses a textual log level the way the teacher's deprecated
// --debug/--loglevel flags did, so the core's own CLI flags can reuse it.
func SetLevel(log *logrus.Logger, s string) error {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return errors.Wrapf(err, "unknown log level %q", s)
	}
	log.SetLevel(lvl)
	DebugOutput = lvl >= logrus.DebugLevel
	return nil
}
