package recap

import (
	"fmt"
	"math"
)

// FormatMinutes renders a duration in minutes as "1h 40m", "45m" or "30s".
func FormatMinutes(minutes float64) string {
	seconds := int64(math.Round(minutes * 60))
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}
