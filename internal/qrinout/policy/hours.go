package policy

import (
	"fmt"
	"time"
)

// Window is an operating-hours window with HH:MM boundaries.
// Start > End means the window wraps past midnight (e.g. 22:00-06:00).
type Window struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// minuteOfDay parses a strict HH:MM string into minutes since midnight.
func minuteOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse %q as HH:MM: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// WithinHours reports whether now falls inside the window, with a stable
// message suitable for user feedback.
//
// A nil window, or one with missing or malformed boundaries, is treated as
// always-allowed. This permissive fallback mirrors the rest of the system:
// an operator who wants a checkpoint closed sets explicit hours on it.
func WithinHours(now time.Time, w *Window) (bool, string) {
	if w == nil {
		return true, "always allowed (no restrictions)"
	}
	if w.Start == "" || w.End == "" {
		return true, "invalid allowed hours configuration"
	}

	start, err := minuteOfDay(w.Start)
	if err != nil {
		return true, "invalid allowed hours configuration"
	}
	end, err := minuteOfDay(w.End)
	if err != nil {
		return true, "invalid allowed hours configuration"
	}

	cur := now.Hour()*60 + now.Minute()

	if start > end {
		// Overnight window wrapping past midnight.
		if cur >= start || cur <= end {
			return true, "within allowed hours"
		}
	} else {
		if start <= cur && cur <= end {
			return true, "within allowed hours"
		}
	}

	return false, "outside of allowed hours"
}

// FormatCountdown renders a remaining duration as MM:SS, clamping negative
// input to zero.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	secs := int(remaining.Seconds())
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
