// Package format renders durations for logs and command output.
package format

import (
	"fmt"
	"time"
)

// Duration converts seconds to "M:SS" or "H:MM:SS" display format.
func Duration(seconds float64) string {
	if seconds < 0 {
		return "0:00"
	}
	s := int(seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// Elapsed formats a wall-clock duration as a short human-readable string
// (e.g. "3.2 seconds", "1.5 minutes", "2.0 hours").
func Elapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1f seconds", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}
