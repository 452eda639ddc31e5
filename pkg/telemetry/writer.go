// Package telemetry implements the Telemetry Writer (spec component C): a
// bounded, throttled event spool written as JSON arrays under eventsFolder.
// Grounded on the teacher's pkg/plugin/aggregation status-writing shape
// (serialize-then-atomic-rename) and on pkg/worker/request.go's
// best-effort-on-failure posture: telemetry problems are logged, never
// fatal (spec §7.2).
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

// Writer spools telemetry events into eventsFolder. The counter used to
// produce the "[TC=<n>]" debugging token is the only genuine process-wide
// piece of state the original has (design note 9); here it is scoped to the
// Writer instance instead of a package global.
type Writer struct {
	eventsFolder string
	supported    bool
	pid          int

	mu               sync.Mutex
	counter          int
	throttleCount    int
	throttleWindowAt time.Time
	currentFile      string
}

// NewWriter constructs a Writer. supported mirrors the wrapper-declared
// telemetrySupported flag (spec §6.1); when false, or when eventsFolder
// does not exist, the writer degrades to a no-op (spec §4.4 "Availability
// contract").
func NewWriter(eventsFolder string, supported bool) *Writer {
	w := &Writer{
		eventsFolder: eventsFolder,
		pid:          os.Getpid(),
	}
	if supported && envlayer.FileExists(eventsFolder) {
		w.supported = true
	}
	return w
}

// IsSupported reports whether this writer will actually persist events.
func (w *Writer) IsSupported() bool {
	return w.supported
}

// EmitLogLine implements errlog.TelemetryEmitter so the Composite Logger
// can tee warn-and-above log lines into the event spool without this
// package importing errlog (one-way ownership, design note 9).
func (w *Writer) EmitLogLine(taskName, level, message string) {
	if err := w.WriteEvent(taskName, level, message, ""); err != nil {
		logrus.WithError(err).Debug("telemetry: dropping tee'd log line")
	}
}

// WriteEvent appends a single event, applying message truncation, event
// size rejection, per-file rotation, and directory-size eviction in that
// order (spec §4.4, invariant 5 / P4).
func (w *Writer) WriteEvent(taskName, level, message, operationID string) error {
	if !w.supported {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.throttleLocked(); err != nil {
		return err
	}

	w.counter++
	message = truncateMessage(message, w.counter)

	ev := NewEvent(taskName, level, message, operationID, w.pid)
	raw, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal telemetry event")
	}
	if len(raw) > constants.EventSizeLimit {
		logrus.WithField("taskName", taskName).Error("telemetry: event exceeds EVENT_SIZE_LIMIT, dropping")
		return errors.New("telemetry: event exceeds EVENT_SIZE_LIMIT")
	}

	return w.appendToFileLocked(ev, int64(len(raw)))
}

// truncateMessage enforces MSG_SIZE_LIMIT, appending the dropped-count
// marker and the "[TC=<n>]" ordering token (spec §4.4).
func truncateMessage(message string, counter int) string {
	if len(message) <= constants.MsgSizeLimit {
		return fmt.Sprintf("%s [TC=%d]", message, counter)
	}
	dropped := len(message) - constants.MsgSizeLimit
	truncated := message[:constants.MsgSizeLimit]
	return fmt.Sprintf("%s. [%d chars dropped] [TC=%d]", truncated, dropped, counter)
}

// throttleLocked enforces MAX_EVENT_COUNT_THROTTLE events per
// MAX_TIME_IN_SECONDS_FOR_EVENT_COUNT_THROTTLE-second window, sleeping out
// the remainder of the window once the cap is hit (spec §4.4).
func (w *Writer) throttleLocked() error {
	now := envlayer.Now()
	if w.throttleWindowAt.IsZero() {
		w.throttleWindowAt = now
	}

	elapsed := now.Sub(w.throttleWindowAt)
	if elapsed >= constants.MaxTimeInSecondsForEventCountThrottle*time.Second {
		w.throttleCount = 0
		w.throttleWindowAt = now
		elapsed = 0
	}

	if w.throttleCount >= constants.MaxEventCountThrottle {
		logrus.Warn("telemetry: event count throttle reached, pausing before resuming emission")
		remaining := constants.MaxTimeInSecondsForEventCountThrottle*time.Second - elapsed
		if remaining > 0 {
			envlayer.Sleep(remaining)
		}
		w.throttleCount = 0
		w.throttleWindowAt = envlayer.Now()
	}

	w.throttleCount++
	return nil
}

// appendToFileLocked writes ev into the current event file, rotating to a
// new file when the file-size limit would be exceeded and evicting the
// oldest files when the directory-size limit would be exceeded.
func (w *Writer) appendToFileLocked(ev Event, newEventSize int64) error {
	name, existing, err := w.currentFileLocked()
	if err != nil {
		return err
	}

	var events []Event
	if existing != nil {
		if jerr := json.Unmarshal(existing, &events); jerr != nil {
			events = nil
		}
	}

	projectedSize := int64(len(existing)) + newEventSize
	if projectedSize > constants.EventFileSizeLimit && len(events) > 0 {
		// Start a new file; wait 1s to guarantee a distinct monotonic-ms name.
		envlayer.Sleep(time.Second)
		name = w.newFileName()
		events = nil
	}

	events = append(events, ev)
	out, err := json.Marshal(events)
	if err != nil {
		return errors.Wrap(err, "marshal event file")
	}

	if err := w.makeRoomLocked(int64(len(out))); err != nil {
		return err
	}

	if err := envlayer.WriteFileAtomicWithRetry(name, out, 0644); err != nil {
		return errors.Wrap(err, "writing event file")
	}
	w.currentFile = name
	return nil
}

// currentFileLocked returns the active event file's path and contents (nil
// if it doesn't exist yet), choosing the most recently created file in the
// directory or starting a fresh one if none exists.
func (w *Writer) currentFileLocked() (string, []byte, error) {
	if w.currentFile != "" {
		if b, err := os.ReadFile(w.currentFile); err == nil {
			return w.currentFile, b, nil
		}
	}

	files, err := w.sortedEventFiles()
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		name := w.newFileName()
		return name, nil, nil
	}

	latest := files[len(files)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return latest, nil, nil
	}
	return latest, b, nil
}

func (w *Writer) newFileName() string {
	return filepath.Join(w.eventsFolder, fmt.Sprintf("%d.json", envlayer.Now().UnixMilli()))
}

// sortedEventFiles returns the *.json files in eventsFolder, oldest first.
func (w *Writer) sortedEventFiles() ([]string, error) {
	entries, err := os.ReadDir(w.eventsFolder)
	if err != nil {
		return nil, errors.Wrap(err, "reading events folder")
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{filepath.Join(w.eventsFolder, e.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// makeRoomLocked deletes oldest event files until adding addSize more bytes
// would fit under DIR_SIZE_LIMIT, raising an error if it is still
// impossible after deleting everything else (spec §4.4, invariant 5).
func (w *Writer) makeRoomLocked(addSize int64) error {
	for {
		total, err := w.dirSizeLocked()
		if err != nil {
			return err
		}
		if total+addSize <= constants.DirSizeLimit {
			return nil
		}

		files, err := w.sortedEventFiles()
		if err != nil {
			return err
		}
		// Never delete the file we're about to (re)write.
		victim := ""
		for _, f := range files {
			if f != w.currentFile {
				victim = f
				break
			}
		}
		if victim == "" {
			if addSize > constants.DirSizeLimit {
				return errors.New("telemetry: single event file exceeds DIR_SIZE_LIMIT even with directory empty")
			}
			return errors.New("telemetry: cannot free enough space under DIR_SIZE_LIMIT")
		}
		if err := os.Remove(victim); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "evicting oldest event file %q", victim)
		}
	}
}

func (w *Writer) dirSizeLocked() (int64, error) {
	entries, err := os.ReadDir(w.eventsFolder)
	if err != nil {
		return 0, errors.Wrap(err, "reading events folder")
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
