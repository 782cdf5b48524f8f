// Package codes keeps one-time codes for many visible entries in step with
// the server's time windows: it fetches codes, schedules each refresh at the
// code's expiry boundary and hands render-ready state to a Renderer.
package codes

import (
	"strconv"
	"time"
)

// DefaultWindowSeconds is the code window length servers use unless they
// report another interval.
const DefaultWindowSeconds = 30

// Urgency tiers thresholds, in seconds remaining.
const (
	CriticalThreshold = 5
	WarningThreshold  = 10
)

// Urgency classifies how close a code is to its window boundary.
type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyWarning
	UrgencyCritical
)

// String returns the lower-case tier name.
func (u Urgency) String() string {
	switch u {
	case UrgencyCritical:
		return "critical"
	case UrgencyWarning:
		return "warning"
	default:
		return "normal"
	}
}

// WindowState is the render state of a code's countdown.
type WindowState struct {
	Display   string  // text shown inside the countdown
	Remaining int     // seconds left, clamped to [0, Window]
	Window    int     // window length in seconds
	Urgency   Urgency // colour tier
	Progress  float64 // 0 = window just started, 1 = about to expire
}

// Window converts the server-reported seconds remaining and the window
// length into a WindowState. Out of range inputs are clamped; a non-positive
// window falls back to DefaultWindowSeconds.
func Window(remaining, window int) WindowState {
	if window <= 0 {
		window = DefaultWindowSeconds
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > window {
		remaining = window
	}

	return WindowState{
		Display:   strconv.Itoa(remaining),
		Remaining: remaining,
		Window:    window,
		Urgency:   urgencyFor(remaining),
		Progress:  1 - float64(remaining)/float64(window),
	}
}

func urgencyFor(remaining int) Urgency {
	switch {
	case remaining <= CriticalThreshold:
		return UrgencyCritical
	case remaining <= WarningThreshold:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// DashOffset returns the stroke offset for a circular indicator with the
// given circumference: 0 when the window just started, the full
// circumference when it is about to expire.
func (s WindowState) DashOffset(circumference float64) float64 {
	return circumference * s.Progress
}

// Elapse returns the state after d has passed locally, without asking the
// server. It is used for the decorative per-second redraw between fetches.
func (s WindowState) Elapse(d time.Duration) WindowState {
	if d <= 0 {
		return s
	}
	return Window(s.Remaining-int(d/time.Second), s.Window)
}
