package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DurationToSeconds converts "H:MM:SS", "M:SS" or "SS" into seconds.
// It never fails: "", "None", anything unparsable and values that overflow
// int yield 0.
func DurationToSeconds(display string) int {
	display = strings.TrimSpace(display)
	if display == "" || display == "None" {
		return 0
	}

	parts := strings.Split(display, ":")
	total := 0
	mult := 1
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 {
			return 0
		}
		if n > 0 && (mult > math.MaxInt/n || n*mult > math.MaxInt-total) {
			return 0
		}
		total += n * mult
		if i > 0 {
			if mult > math.MaxInt/60 {
				return 0
			}
			mult *= 60
		}
	}
	return total
}

// FormatDuration renders seconds as "M:SS" or "H:MM:SS".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
