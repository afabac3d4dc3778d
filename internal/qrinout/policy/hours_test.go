package policy_test

import (
	"testing"
	"time"

	"github.com/qrinout/server/internal/qrinout/policy"
)

// at returns an arbitrary date with the given wall-clock time.
func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-10 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWithinHours_StandardWindow(t *testing.T) {
	w := &policy.Window{Start: "09:00", End: "18:00"}

	cases := []struct {
		clock string
		want  bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"12:30", true},
		{"18:00", true},
		{"18:01", false},
	}

	for _, c := range cases {
		got, _ := policy.WithinHours(at(c.clock), w)
		if got != c.want {
			t.Errorf("WithinHours(%s, 09:00-18:00) = %v, want %v", c.clock, got, c.want)
		}
	}
}

func TestWithinHours_OvernightWindow(t *testing.T) {
	w := &policy.Window{Start: "22:00", End: "06:00"}

	cases := []struct {
		clock string
		want  bool
	}{
		{"23:00", true},
		{"05:00", true},
		{"22:00", true},
		{"06:00", true},
		{"12:00", false},
		{"21:59", false},
	}

	for _, c := range cases {
		got, _ := policy.WithinHours(at(c.clock), w)
		if got != c.want {
			t.Errorf("WithinHours(%s, 22:00-06:00) = %v, want %v", c.clock, got, c.want)
		}
	}
}

func TestWithinHours_NilWindowAlwaysAllowed(t *testing.T) {
	got, msg := policy.WithinHours(at("03:00"), nil)
	if !got {
		t.Errorf("expected nil window to be always allowed, got false (%s)", msg)
	}
}

func TestWithinHours_MalformedWindowAlwaysAllowed(t *testing.T) {
	for _, w := range []*policy.Window{
		{Start: "", End: "18:00"},
		{Start: "09:00", End: ""},
		{Start: "9am", End: "18:00"},
		{Start: "09:00", End: "25:99"},
	} {
		got, _ := policy.WithinHours(at("03:00"), w)
		if !got {
			t.Errorf("expected malformed window %+v to be always allowed", w)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{95 * time.Second, "01:35"},
		{30 * time.Minute, "30:00"},
		{0, "00:00"},
		{-5 * time.Second, "00:00"},
		{61*time.Minute + 5*time.Second, "61:05"},
	}

	for _, c := range cases {
		if got := policy.FormatCountdown(c.in); got != c.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
