// Package isoduration parses and formats the restricted ISO-8601 duration
// subset this agent uses throughout execution config and the systemd unit
// manager: "PT<H>H<M>M<S>S" with any of the three fields optional (spec
// §4.6, §8 P10). No duration-parsing library appears anywhere in the
// example pack, so this is a necessary standard-library implementation
// (see DESIGN.md) built on regexp, matching the teacher's general comfort
// with regexp for structured-text parsing (pkg/image version tag matching).
package isoduration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var pattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ErrInvalidDuration is the sentinel wrapped by Parse on malformed input.
var ErrInvalidDuration = errors.New("invalid ISO-8601 duration")

// Parse parses "PT<H>H<M>M<S>S" into a time.Duration. At least one of H/M/S
// must be present.
func Parse(s string) (time.Duration, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q", s)
	}

	hours, err := atoiOrZero(m[1])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q: %v", s, err)
	}
	minutes, err := atoiOrZero(m[2])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q: %v", s, err)
	}
	seconds, err := atoiOrZero(m[3])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q: %v", s, err)
	}

	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Format renders d back into "PT<H>H<M>M<S>S", round-tripping the total
// seconds (spec §8 P10). Zero-valued fields are omitted; a zero duration
// renders as "PT0S".
func Format(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	out := "PT"
	if hours > 0 {
		out += fmt.Sprintf("%dH", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dM", minutes)
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		out += fmt.Sprintf("%dS", seconds)
	}
	return out
}

// SystemdInterval converts s into the "<h>h<m>m<s>s" form the Timer unit's
// OnUnitActiveSec expects (spec §4.6): strip "PT", lowercase the unit
// letters, leave numbers as-is.
func SystemdInterval(s string) (string, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return "", errors.Wrapf(ErrInvalidDuration, "%q", s)
	}
	out := ""
	if m[1] != "" {
		out += m[1] + "h"
	}
	if m[2] != "" {
		out += m[2] + "m"
	}
	if m[3] != "" {
		out += m[3] + "s"
	}
	return out, nil
}
