package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"bucks2bar/internal/core"
)

// lastSavedLabel renders the status line under the chart.
func lastSavedLabel(last, now time.Time) string {
	if last.IsZero() {
		return "Not saved yet"
	}
	if now.Sub(last) < time.Second {
		return "Saved just now"
	}
	return "Saved " + humanize.RelTime(last, now, "ago", "from now")
}

// usernameMessage mirrors the inline feedback shown next to the username field.
func usernameMessage(name string) (string, bool) {
	if err := core.ValidateUsername(name); err != nil {
		return "✗ Username does not meet requirements. Must be at least 5 characters and include 1 uppercase letter, 1 number, and 1 special character.", false
	}
	return fmt.Sprintf("✓ Username %q is valid!", name), true
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
