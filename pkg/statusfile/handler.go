// Package statusfile implements the Status Handler (spec component D): the
// assembly, monotonicity enforcement, and on-disk persistence of the
// .status document consumed by the platform. Grounded on the teacher's
// pkg/plugin/aggregation status aggregation (named, ordered sub-entries
// merged into one document and serialized atomically) and on
// pkg/plugin/aggregation/update.go's save-to-temp-then-rename pattern,
// reused here via envlayer.WriteFileAtomicWithRetry.
package statusfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

// substatusState tracks one named substatus's current terminal/non-terminal
// status, independent of its payload, so the substatus setters can enforce
// invariant 2 (no reversion from Success/Error back to
// transitioning within a run).
type substatusState struct {
	status  constants.SubstatusStatus
	code    int
	payload interface{}
	present bool
}

// Handler owns the in-memory status document and writes it to statusPath on
// every mutation, truncating package lists as needed to respect
// reportingTargetSize (spec §4.3, §6.2).
type Handler struct {
	mu sync.Mutex

	statusPath         string
	name               string
	activityID         string
	operation          constants.Operation
	reportingTargetSize int

	substatus map[string]*substatusState

	assessmentErrors      *errorList
	installationErrors    *errorList
	configurePatchingErrors *errorList

	assessmentPackages   []Package
	installationPackages []Package

	assessmentDone        bool
	configurePatchingDone bool

	// pendingConfigurePatching holds a terminal ConfigurePatching outcome
	// that arrived before Assessment finished (invariant 3); it is released
	// as soon as assessmentDone flips true, since nothing else re-invokes
	// SetConfigurePatchingSummary a second time.
	pendingConfigurePatching *pendingConfigurePatchingSummary
}

type pendingConfigurePatchingSummary struct {
	status  constants.SubstatusStatus
	code    int
	summary ConfigurePatchingSummary
}

const defaultReportingTargetSize = 126 * 1024 // 126 KiB, matches common wire size caps seen in the pack's status writers

// NewHandler constructs a Handler writing to statusPath.
func NewHandler(statusPath, name, activityID string) *Handler {
	return &Handler{
		statusPath:          statusPath,
		name:                name,
		activityID:          activityID,
		reportingTargetSize: defaultReportingTargetSize,
		substatus: map[string]*substatusState{
			constants.SubstatusConfigurePatchingSummary:    {},
			constants.SubstatusPatchAssessmentSummary:      {},
			constants.SubstatusPatchInstallationSummary:    {},
			constants.SubstatusPatchMetadataForHealthStore: {},
		},
		assessmentErrors:        newErrorList(),
		installationErrors:      newErrorList(),
		configurePatchingErrors: newErrorList(),
	}
}

// SetReportingTargetSize overrides the byte budget the truncation pass
// trims the serialized document to (spec §4.3).
func (h *Handler) SetReportingTargetSize(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reportingTargetSize = n
}

// SetCurrentOperation records which goal-state operation is in progress;
// it is included verbatim in status.status.operation.
func (h *Handler) SetCurrentOperation(op constants.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.operation = op
}

// AddError records an error against the named substatus's bounded error
// list (spec §4.3 "Error list policy").
func (h *Handler) AddError(substatusName, code, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch substatusName {
	case constants.SubstatusPatchAssessmentSummary:
		h.assessmentErrors.add(code, message)
	case constants.SubstatusPatchInstallationSummary:
		h.installationErrors.add(code, message)
	case constants.SubstatusConfigurePatchingSummary:
		h.configurePatchingErrors.add(code, message)
	}
}

// setSubstatus enforces invariant 2: once a substatus has reached
// success/error it cannot revert to transitioning within the same Handler
// lifetime (a fresh operation gets a fresh Handler).
func (h *Handler) setSubstatus(name string, status constants.SubstatusStatus, code int, payload interface{}) {
	st := h.substatus[name]
	if st.present && (st.status == constants.StatusSuccess || st.status == constants.StatusError) && status == constants.StatusTransitioning {
		return
	}
	st.status = status
	st.code = code
	st.payload = payload
	st.present = true
}

// SetPatchAssessmentSummary sets the assessment substatus payload and status.
func (h *Handler) SetPatchAssessmentSummary(status constants.SubstatusStatus, code int, summary PatchAssessmentSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	summary.Errors = h.assessmentErrors.summary()
	h.assessmentPackages = summary.Patches
	h.setSubstatus(constants.SubstatusPatchAssessmentSummary, status, code, summary)
	if status == constants.StatusSuccess || status == constants.StatusError {
		h.assessmentDone = true
		h.releasePendingConfigurePatchingLocked()
	}
	h.flushLocked()
}

// releasePendingConfigurePatchingLocked applies a ConfigurePatching terminal
// outcome held back by invariant 3 now that Assessment has finished. Caller
// must hold h.mu.
func (h *Handler) releasePendingConfigurePatchingLocked() {
	pending := h.pendingConfigurePatching
	if pending == nil {
		return
	}
	h.pendingConfigurePatching = nil
	h.configurePatchingDone = true
	h.setSubstatus(constants.SubstatusConfigurePatchingSummary, pending.status, pending.code, pending.summary)
}

// SetPatchInstallationSummary sets the installation substatus payload and status.
func (h *Handler) SetPatchInstallationSummary(status constants.SubstatusStatus, code int, summary PatchInstallationSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	summary.Errors = h.installationErrors.summary()
	h.installationPackages = summary.Patches
	h.setSubstatus(constants.SubstatusPatchInstallationSummary, status, code, summary)
	h.flushLocked()
}

// SetConfigurePatchingSummary sets the ConfigurePatching substatus, applying
// invariant 3: a terminal status here is held back (kept transitioning on
// disk) until the Assessment substatus has also reached a terminal status
// in the same run, since ConfigurePatching always triggers an assessment.
func (h *Handler) SetConfigurePatchingSummary(status constants.SubstatusStatus, code int, summary ConfigurePatchingSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	summary.Errors = h.configurePatchingErrors.summary()

	effective := status
	if (status == constants.StatusSuccess || status == constants.StatusError) && !h.assessmentDone {
		effective = constants.StatusTransitioning
		h.pendingConfigurePatching = &pendingConfigurePatchingSummary{status: status, code: code, summary: summary}
	} else if status == constants.StatusSuccess || status == constants.StatusError {
		h.configurePatchingDone = true
	}
	h.setSubstatus(constants.SubstatusConfigurePatchingSummary, effective, code, summary)
	h.flushLocked()
}

// SetPatchMetadataForHealthStore sets the health-store metadata substatus.
func (h *Handler) SetPatchMetadataForHealthStore(status constants.SubstatusStatus, code int, meta PatchMetadataForHealthStore) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setSubstatus(constants.SubstatusPatchMetadataForHealthStore, status, code, meta)
	h.flushLocked()
}

// SetPackageAssessmentStatus updates or appends a single package's entry in
// the assessment list by name, used by operators to stream per-package
// progress without re-submitting the whole summary (spec §4.2).
func (h *Handler) SetPackageAssessmentStatus(pkg Package) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assessmentPackages = upsertPackage(h.assessmentPackages, pkg)
	if st := h.substatus[constants.SubstatusPatchAssessmentSummary]; st.present {
		if summary, ok := st.payload.(PatchAssessmentSummary); ok {
			summary.Patches = h.assessmentPackages
			st.payload = summary
		}
	}
	h.flushLocked()
}

// SetPackageInstallationStatus updates or appends a single package's entry
// in the installation list by name.
func (h *Handler) SetPackageInstallationStatus(pkg Package) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.installationPackages = upsertPackage(h.installationPackages, pkg)
	if st := h.substatus[constants.SubstatusPatchInstallationSummary]; st.present {
		if summary, ok := st.payload.(PatchInstallationSummary); ok {
			summary.Patches = h.installationPackages
			st.payload = summary
		}
	}
	h.flushLocked()
}

func upsertPackage(pkgs []Package, pkg Package) []Package {
	for i, p := range pkgs {
		if p.Name == pkg.Name && p.Version == pkg.Version {
			pkgs[i] = pkg
			return pkgs
		}
	}
	return append(pkgs, pkg)
}

// LoadStatusFileComponents reads back an existing .status document and
// returns its last element, so a caller can inspect an earlier run's
// substatus state without re-deriving it.
func LoadStatusFileComponents(path string) (*StatusDocument, error) {
	raw, err := envlayer.ReadFileWithRetry(path)
	if err != nil {
		return nil, err
	}
	var docs []StatusDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, errors.Wrapf(err, "parsing status file %q", path)
	}
	if len(docs) == 0 {
		return nil, errors.Errorf("status file %q is empty", path)
	}
	return &docs[len(docs)-1], nil
}

// flushLocked serializes the current state and writes it to statusPath,
// truncating package lists to fit reportingTargetSize, and deletes the
// least-recently-modified .status files beyond
// MaxCompleteStatusFilesToRetain.
// Caller must hold h.mu.
func (h *Handler) flushLocked() {
	assessment, installation := h.assessmentPackages, h.installationPackages

	build := func(a, inst []Package) ([]byte, error) {
		return json.Marshal([]StatusDocument{h.buildDocument(a, inst, 0, 0)})
	}

	trimmedA, trimmedI, droppedA, droppedI, err := truncateToFit(cloneSlice(assessment), cloneSlice(installation), h.reportingTargetSize, build)
	if err != nil {
		return
	}

	doc := h.buildDocument(trimmedA, trimmedI, droppedA, droppedI)
	raw, err := json.Marshal([]StatusDocument{doc})
	if err != nil {
		return
	}

	if err := envlayer.WriteFileAtomicWithRetry(h.statusPath, raw, 0644); err != nil {
		return
	}

	h.retainCompleteStatusFiles()
}

func cloneSlice(pkgs []Package) []Package {
	out := make([]Package, len(pkgs))
	copy(out, pkgs)
	return out
}

func (h *Handler) buildDocument(assessment, installation []Package, droppedAssessment, droppedInstallation int) StatusDocument {
	var substatusEntries []SubstatusEntry
	for _, name := range constants.SubstatusOrder {
		st := h.substatus[name]
		if !st.present {
			continue
		}
		payload := st.payload
		switch p := payload.(type) {
		case PatchAssessmentSummary:
			p.Patches = assessment
			p.DroppedPatchCount = droppedAssessment
			payload = p
		case PatchInstallationSummary:
			p.Patches = installation
			p.DroppedPatchCount = droppedInstallation
			payload = p
		}
		msg, _ := json.Marshal(payload)
		substatusEntries = append(substatusEntries, SubstatusEntry{
			Name:   name,
			Status: st.status,
			Code:   st.code,
			FormattedMessage: FormattedMessage{
				Lang:    "en-US",
				Message: string(msg),
			},
		})
	}

	overall, code := h.overallStatusLocked()
	return StatusDocument{
		Version:      1.0,
		TimestampUTC: envlayer.Now().UTC().Format("2006-01-02T15:04:05.000000Z"),
		Status: StatusBody{
			Name:      h.name,
			Operation: string(h.operation),
			Status:    overall,
			Code:      code,
			FormattedMessage: FormattedMessage{
				Lang:    "en-US",
				Message: overallMessage(overall),
			},
			Substatus: substatusEntries,
		},
	}
}

// overallStatusLocked derives status.status.status/code from the substatus
// set: error if any substatus errored, transitioning if any is still
// transitioning, success only once every present substatus has succeeded.
func (h *Handler) overallStatusLocked() (constants.SubstatusStatus, int) {
	sawAny := false
	anyTransitioning := false
	anyError := false
	for _, name := range constants.SubstatusOrder {
		st := h.substatus[name]
		if !st.present {
			continue
		}
		sawAny = true
		switch st.status {
		case constants.StatusError:
			anyError = true
		case constants.StatusTransitioning:
			anyTransitioning = true
		}
	}
	switch {
	case !sawAny:
		return constants.StatusTransitioning, 0
	case anyError:
		return constants.StatusError, 1
	case anyTransitioning:
		return constants.StatusTransitioning, 0
	default:
		return constants.StatusSuccess, 0
	}
}

func overallMessage(status constants.SubstatusStatus) string {
	switch status {
	case constants.StatusSuccess:
		return "Operation completed successfully."
	case constants.StatusError:
		return "Operation completed with errors."
	default:
		return "Operation in progress."
	}
}

// retainCompleteStatusFiles keeps at most MaxCompleteStatusFilesToRetain
// *.status files (one per sequence number, named "<seq>.status" by
// cmd/patchcore/run.go) in statusPath's directory, evicting the
// least-recently-modified ones beyond that cap (spec §4.3).
func (h *Handler) retainCompleteStatusFiles() {
	dir := filepath.Dir(h.statusPath)
	matches, err := filepath.Glob(filepath.Join(dir, "*.status"))
	if err != nil || len(matches) <= constants.MaxCompleteStatusFilesToRetain {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: m, modTime: fi.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	if len(files) <= constants.MaxCompleteStatusFilesToRetain {
		return
	}
	for _, f := range files[:len(files)-constants.MaxCompleteStatusFilesToRetain] {
		os.Remove(f.path)
	}
}
