// Package timecode validates and converts the H:MM:SS[.mmm] markers used for
// clip start and end positions.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Grammar is the timestamp pattern without anchors, shared with the batch line grammar.
const Grammar = `\d{1,2}:[0-5]?\d:[0-5]?\d(?:\.\d{3})?`

var fullMatch = regexp.MustCompile(`^` + Grammar + `$`)

// Valid reports whether value is a complete timestamp.
func Valid(value string) bool {
	return fullMatch.MatchString(value)
}

// Parse converts a timestamp into a duration from the start of the media.
func Parse(value string) (time.Duration, error) {
	if !Valid(value) {
		return 0, fmt.Errorf("invalid timestamp %q (want H:MM:SS or H:MM:SS.mmm)", value)
	}
	clock, millis, _ := strings.Cut(value, ".")
	parts := strings.Split(clock, ":")
	var total time.Duration
	for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
		}
		total += time.Duration(n) * unit
	}
	if millis != "" {
		ms, err := strconv.Atoi(millis)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
		}
		total += time.Duration(ms) * time.Millisecond
	}
	return total, nil
}

// Format renders d in the canonical H:MM:SS form, adding .mmm only when needed.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	if ms == 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
}
