package stopwatch

import "testing"

func TestElapsedAfterStop(t *testing.T) {
	var sw Stopwatch
	sw.Start()
	sw.Stop()
	if sw.Elapsed() < 0 {
		t.Errorf("Elapsed() = %v, want non-negative", sw.Elapsed())
	}
}
