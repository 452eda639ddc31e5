// Package stopwatch provides the operator driver's task-duration timer,
// supplemented from the original Python source's Stopwatch helper (used in
// perf-log telemetry events, spec §4.2 step 5). Grounded on the teacher's
// pkg/time.After pattern of a swappable clock hook rather than a bare
// time.Now() call baked directly into the type.
package stopwatch

import (
	"time"

	"github.com/azure/patchcore/pkg/envlayer"
)

// Stopwatch measures elapsed wall-clock time for one operator run, across
// all of its attempts.
type Stopwatch struct {
	startedAt time.Time
	stoppedAt time.Time
}

// Start begins timing, recording the current envlayer-provided time.
func (s *Stopwatch) Start() {
	s.startedAt = envlayer.Now()
	s.stoppedAt = time.Time{}
}

// Stop ends timing. Calling Elapsed before Stop reports the time since Start.
func (s *Stopwatch) Stop() {
	s.stoppedAt = envlayer.Now()
}

// Elapsed reports the duration between Start and Stop (or now, if Stop has
// not yet been called).
func (s *Stopwatch) Elapsed() time.Duration {
	if s.stoppedAt.IsZero() {
		return envlayer.Now().Sub(s.startedAt)
	}
	return s.stoppedAt.Sub(s.startedAt)
}
