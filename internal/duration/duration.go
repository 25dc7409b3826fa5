// Package duration converts ISO-8601 durations, as returned in the YouTube
// contentDetails.duration field, into whole seconds and HH:MM:SS strings.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedDuration is the sentinel wrapped by every MalformedDurationError.
var ErrMalformedDuration = errors.New("malformed ISO-8601 duration")

// MalformedDurationError reports an input that is not a supported ISO-8601 duration.
type MalformedDurationError struct {
	Input  string
	Reason string
}

func (e *MalformedDurationError) Error() string {
	return fmt.Sprintf("malformed ISO-8601 duration %q: %s", e.Input, e.Reason)
}

func (e *MalformedDurationError) Unwrap() error {
	return ErrMalformedDuration
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	secondsPerWeek   = 7 * secondsPerDay
)

// Duration is a parsed ISO-8601 duration restricted to fixed-length units.
// Fractional seconds are truncated toward zero.
type Duration struct {
	Weeks   int64
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64

	total int64
}

// Parse parses strings of the form P[nW][nD][T[nH][nM][n[.f]S]].
// Calendar years and months are rejected because they have no fixed length.
func Parse(s string) (Duration, error) {
	malformed := func(reason string) (Duration, error) {
		return Duration{}, &MalformedDurationError{Input: s, Reason: reason}
	}

	if s == "" {
		return malformed("empty input")
	}
	if s[0] != 'P' {
		return malformed("missing P designator")
	}

	datePart, timePart, hasTime := strings.Cut(s[1:], "T")
	if hasTime && timePart == "" {
		return malformed("T designator without time components")
	}
	if datePart == "" && !hasTime {
		return malformed("no components")
	}

	date, err := scanComponents(datePart, "YMWD", 0)
	if err != nil {
		return malformed("date part: " + err.Error())
	}
	if _, ok := date['Y']; ok {
		return malformed("calendar years are not supported")
	}
	if _, ok := date['M']; ok {
		return malformed("calendar months are not supported")
	}

	clock, err := scanComponents(timePart, "HMS", 'S')
	if err != nil {
		return malformed("time part: " + err.Error())
	}

	d := Duration{
		Weeks:   date['W'],
		Days:    date['D'],
		Hours:   clock['H'],
		Minutes: clock['M'],
		Seconds: clock['S'],
	}

	var ok bool
	total := int64(0)
	for _, c := range []struct {
		value int64
		scale int64
	}{
		{d.Weeks, secondsPerWeek},
		{d.Days, secondsPerDay},
		{d.Hours, secondsPerHour},
		{d.Minutes, secondsPerMinute},
		{d.Seconds, 1},
	} {
		if total, ok = mulAdd(total, c.value, c.scale); !ok {
			return malformed("value out of range")
		}
	}
	d.total = total

	return d, nil
}

// scanComponents reads <number><designator> pairs. Designators must appear in
// the order given by allowed, each at most once. Only the fracOn designator may
// carry a decimal fraction.
func scanComponents(part, allowed string, fracOn byte) (map[byte]int64, error) {
	values := make(map[byte]int64)
	last := -1

	for i := 0; i < len(part); {
		start := i
		for i < len(part) && isDigit(part[i]) {
			i++
		}
		if i == start {
			return nil, fmt.Errorf("expected digits at offset %d", start)
		}
		whole := part[start:i]

		hasFraction := false
		if i < len(part) && (part[i] == '.' || part[i] == ',') {
			i++
			fracStart := i
			for i < len(part) && isDigit(part[i]) {
				i++
			}
			if i == fracStart {
				return nil, fmt.Errorf("empty fraction at offset %d", fracStart)
			}
			hasFraction = true
		}

		if i >= len(part) {
			return nil, fmt.Errorf("number %q has no designator", part[start:])
		}
		designator := part[i]
		i++

		pos := strings.IndexByte(allowed, designator)
		if pos < 0 {
			return nil, fmt.Errorf("unknown designator %q", designator)
		}
		if pos <= last {
			return nil, fmt.Errorf("designator %q repeated or out of order", designator)
		}
		last = pos

		if hasFraction && designator != fracOn {
			return nil, fmt.Errorf("fraction not allowed on %q", designator)
		}

		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value out of range for %q", designator)
		}
		values[designator] = v
	}

	return values, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func mulAdd(total, v, scale int64) (int64, bool) {
	if v > (math.MaxInt64-total)/scale {
		return 0, false
	}
	return total + v*scale, true
}

// TotalSeconds returns the whole number of seconds the duration spans.
func (d Duration) TotalSeconds() int64 {
	return d.total
}

// Standard returns the duration as zero-padded HH:MM:SS.
func (d Duration) Standard() string {
	return FormatSeconds(d.total)
}

// TotalSeconds parses s and returns its length in whole seconds.
func TotalSeconds(s string) (int64, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return d.TotalSeconds(), nil
}

// ToHHMMSS parses s and returns it formatted as HH:MM:SS.
func ToHHMMSS(s string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return d.Standard(), nil
}

// FormatSeconds formats n seconds as HH:MM:SS. Hours grow beyond two digits
// when needed; negative input is treated as zero.
func FormatSeconds(n int64) string {
	if n < 0 {
		n = 0
	}
	h := n / secondsPerHour
	m := (n % secondsPerHour) / secondsPerMinute
	sec := n % secondsPerMinute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// ParseStandard is the inverse of FormatSeconds.
func ParseStandard(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid HH:MM:SS value %q", s)
	}

	var fields [3]int64
	for i, p := range parts {
		if len(p) < 2 {
			return 0, fmt.Errorf("invalid HH:MM:SS value %q", s)
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid HH:MM:SS value %q", s)
		}
		fields[i] = v
	}
	if fields[1] >= 60 || fields[2] >= 60 {
		return 0, fmt.Errorf("invalid HH:MM:SS value %q", s)
	}

	return fields[0]*secondsPerHour + fields[1]*secondsPerMinute + fields[2], nil
}
