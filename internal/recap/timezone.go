package recap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/timetrack/internal/domain"
)

// maxOffsetMinutes bounds tz_offset strictly within one day.
const maxOffsetMinutes = 24 * 60

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05Z07",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04Z0700",
	}
	naiveLayouts = []string{
		"2006-01-02",
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999999",
	}
)

// ResolveLocation turns a tz_offset (minutes the client is behind UTC, as returned by
// JavaScript's getTimezoneOffset) into a fixed zone. An empty value yields fallback.
func ResolveLocation(raw string, fallback *time.Location) (*time.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= -maxOffsetMinutes || minutes >= maxOffsetMinutes {
		return nil, domain.NewParamError("tz_offset", raw, domain.ErrInvalidTzOffset)
	}
	return FixedZone(-minutes), nil
}

// FixedZone returns a zone east of UTC by the given number of minutes.
func FixedZone(eastMinutes int) *time.Location {
	sign := '+'
	abs := eastMinutes
	if abs < 0 {
		sign, abs = '-', -abs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, eastMinutes*60)
}

// ParseTimestamp parses an ISO-8601 date or datetime. Values carrying an offset are
// converted into loc; naive values are read as wall-clock time in loc.
func ParseTimestamp(param, raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewParamError(param, raw, domain.ErrInvalidDateFormat)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns the half-open UTC interval of the calendar day containing t in t's location.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
