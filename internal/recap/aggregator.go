// Package recap aggregates tracked time into daily, weekly and monthly summaries.
package recap

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/observability"
)

// isoLayout renders offsets as +00:00 rather than Z.
const isoLayout = "2006-01-02T15:04:05-07:00"

// TrackSource returns tracks whose start_time lies in [from, to).
type TrackSource interface {
	ListTracksInRange(ctx context.Context, from, to time.Time) ([]domain.Track, error)
}

// Clock reports the current instant.
type Clock func() time.Time

// Entry is the per-activity line of a Summary.
type Entry struct {
	ActivityID   int64   `json:"activity_id"`
	ActivityName string  `json:"activity_name"`
	Minutes      float64 `json:"minutes"`
	Percentage   float64 `json:"percentage"`
}

// Summary is the result of a recap.
type Summary struct {
	Mode         Mode
	Label        string
	Start        time.Time
	End          time.Time
	TotalMinutes float64
	TracksCount  int
	Entries      []Entry
}

// MarshalJSON renders Start and End in the client zone.
func (s Summary) MarshalJSON() ([]byte, error) {
	entries := s.Entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(struct {
		Mode         Mode    `json:"mode"`
		Label        string  `json:"label"`
		Start        string  `json:"start"`
		End          string  `json:"end"`
		TotalMinutes float64 `json:"total_minutes"`
		TracksCount  int     `json:"tracks_count"`
		Entries      []Entry `json:"entries"`
	}{
		Mode:         s.Mode,
		Label:        s.Label,
		Start:        s.Start.Format(isoLayout),
		End:          s.End.Format(isoLayout),
		TotalMinutes: s.TotalMinutes,
		TracksCount:  s.TracksCount,
		Entries:      entries,
	})
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to resolve default periods.
func WithClock(clock Clock) Option {
	return func(a *Aggregator) { a.clock = clock }
}

// WithDefaultLocation sets the zone used when a request carries no tz_offset.
func WithDefaultLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.location = loc
		}
	}
}

// Aggregator computes recaps over a TrackSource. It holds no mutable state.
type Aggregator struct {
	source   TrackSource
	clock    Clock
	location *time.Location
}

// NewAggregator constructs an Aggregator defaulting to the wall clock and UTC.
func NewAggregator(source TrackSource, opts ...Option) *Aggregator {
	a := &Aggregator{source: source, clock: time.Now, location: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DefaultLocation returns the configured fallback zone.
func (a *Aggregator) DefaultLocation() *time.Location {
	return a.location
}

// Run validates the raw mode and query and computes the recap.
func (a *Aggregator) Run(ctx context.Context, rawMode string, q Query) (*Summary, error) {
	started := time.Now()
	mode, err := ParseMode(rawMode)
	if err != nil {
		observability.RecordRecap("invalid", "client_error", time.Since(started))
		return nil, err
	}

	summary, err := a.run(ctx, mode, q)
	outcome := "ok"
	switch {
	case err != nil && domain.IsClientError(err):
		outcome = "client_error"
	case err != nil:
		outcome = "error"
	}
	observability.RecordRecap(string(mode), outcome, time.Since(started))
	return summary, err
}

func (a *Aggregator) run(ctx context.Context, mode Mode, q Query) (*Summary, error) {
	params, err := ParseParams(mode, q, a.location)
	if err != nil {
		return nil, err
	}
	return a.Recap(ctx, mode, params)
}

// Recap computes the summary for already-parsed parameters.
func (a *Aggregator) Recap(ctx context.Context, mode Mode, params Params) (*Summary, error) {
	if params.Location == nil {
		params.Location = a.location
	}
	period := mode.Period(a.clock(), params)

	tracks, err := a.source.ListTracksInRange(ctx, period.Start.UTC(), period.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("load tracks for %s recap: %w", mode, err)
	}

	entries, total := aggregate(tracks)
	return &Summary{
		Mode:         mode,
		Label:        period.Label,
		Start:        period.Start,
		End:          period.End,
		TotalMinutes: round2(total),
		TracksCount:  len(tracks),
		Entries:      entries,
	}, nil
}

type bucket struct {
	id      int64
	name    string
	minutes float64
}

// aggregate sums minutes per activity id and orders entries by minutes descending,
// then activity id ascending.
func aggregate(tracks []domain.Track) ([]Entry, float64) {
	byID := make(map[int64]*bucket)
	order := make([]*bucket, 0)
	var total float64

	for _, track := range tracks {
		minutes := track.Duration().Seconds() / 60
		b, ok := byID[track.ActivityID]
		if !ok {
			b = &bucket{id: track.ActivityID, name: track.Activity.Name}
			byID[track.ActivityID] = b
			order = append(order, b)
		}
		b.minutes += minutes
		total += minutes
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].minutes != order[j].minutes {
			return order[i].minutes > order[j].minutes
		}
		return order[i].id < order[j].id
	})

	entries := make([]Entry, 0, len(order))
	for _, b := range order {
		var pct float64
		if total > 0 {
			pct = b.minutes / total * 100
		}
		entries = append(entries, Entry{
			ActivityID:   b.id,
			ActivityName: b.name,
			Minutes:      round2(b.minutes),
			Percentage:   round2(pct),
		})
	}
	return entries, total
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
