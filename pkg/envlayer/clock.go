package envlayer

import "time"

// Now and After are swappable clock hooks, grounded on the teacher's
// pkg/time.After pattern (a package-level function variable swapped out in
// tests rather than threading a clock interface through every call site).
var (
	Now   = time.Now
	After = time.After
	Sleep = time.Sleep
)
