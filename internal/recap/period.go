package recap

import (
	"strconv"
	"strings"
	"time"

	"example.com/timetrack/internal/domain"
)

// Mode selects the reporting period.
type Mode string

const (
	Daily   Mode = "daily"
	Weekly  Mode = "weekly"
	Monthly Mode = "monthly"
)

// ParseMode validates a raw mode value.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(raw); m {
	case Daily, Weekly, Monthly:
		return m, nil
	default:
		return "", domain.NewParamError("mode", raw, domain.ErrInvalidMode)
	}
}

// Query carries the optional raw parameters of a recap request.
type Query struct {
	Date      string
	WeekStart string
	Year      string
	Month     string
	TZOffset  string
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Params is the parsed form of a Query. Nil fields fall back to "now" in Location.
type Params struct {
	Location  *time.Location
	Date      *time.Time
	WeekStart *time.Time
	Month     *YearMonth
}

// Period is a half-open interval [Start, End) expressed in the client zone.
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// ParseParams parses only the parameters the mode uses.
func ParseParams(mode Mode, q Query, fallback *time.Location) (Params, error) {
	loc, err := ResolveLocation(q.TZOffset, fallback)
	if err != nil {
		return Params{}, err
	}
	p := Params{Location: loc}

	switch mode {
	case Daily:
		if q.Date != "" {
			t, err := ParseTimestamp("date", q.Date, loc)
			if err != nil {
				return Params{}, err
			}
			p.Date = &t
		}
	case Weekly:
		if q.WeekStart != "" {
			t, err := ParseTimestamp("week_start", q.WeekStart, loc)
			if err != nil {
				return Params{}, err
			}
			p.WeekStart = &t
		}
	case Monthly:
		if q.Year != "" && q.Month != "" {
			ym, err := parseYearMonth(q.Year, q.Month)
			if err != nil {
				return Params{}, err
			}
			p.Month = &ym
		}
	}
	return p, nil
}

func parseYearMonth(rawYear, rawMonth string) (YearMonth, error) {
	year, err := strconv.Atoi(strings.TrimSpace(rawYear))
	if err != nil || year < 1 || year > 9999 {
		return YearMonth{}, domain.NewParamError("year", rawYear, domain.ErrInvalidDateFormat)
	}
	month, err := strconv.Atoi(strings.TrimSpace(rawMonth))
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, domain.NewParamError("month", rawMonth, domain.ErrInvalidDateFormat)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// Period computes the reporting interval for mode relative to now.
func (m Mode) Period(now time.Time, p Params) Period {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	switch m {
	case Weekly:
		anchor := now
		if p.WeekStart != nil {
			anchor = p.WeekStart.In(loc)
		}
		return weeklyPeriod(anchor)
	case Monthly:
		ym := YearMonth{Year: now.Year(), Month: now.Month()}
		if p.Month != nil {
			ym = *p.Month
		}
		return monthlyPeriod(ym, loc)
	default:
		anchor := now
		if p.Date != nil {
			anchor = p.Date.In(loc)
		}
		return dailyPeriod(anchor)
	}
}

func dailyPeriod(anchor time.Time) Period {
	start := StartOfDay(anchor)
	return Period{
		Start: start,
		End:   start.AddDate(0, 0, 1),
		Label: start.Format("2006-01-02"),
	}
}

// weeklyPeriod starts on the Monday on or before anchor.
func weeklyPeriod(anchor time.Time) Period {
	midnight := StartOfDay(anchor)
	sinceMonday := (int(midnight.Weekday()) + 6) % 7
	start := midnight.AddDate(0, 0, -sinceMonday)
	end := start.AddDate(0, 0, 7)
	return Period{
		Start: start,
		End:   end,
		Label: start.Format("2006-01-02") + " → " + end.AddDate(0, 0, -1).Format("2006-01-02"),
	}
}

func monthlyPeriod(ym YearMonth, loc *time.Location) Period {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, loc)
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0),
		Label: start.Format("January 2006"),
	}
}
