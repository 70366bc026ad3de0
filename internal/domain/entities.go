package domain

import "time"

// User is a person whose time is being tracked.
type User struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activity is a named category of effort.
type Activity struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Track records that a user performed an activity between StartTime and EndTime.
// Times are kept in UTC. User and Activity are populated on reads.
type Track struct {
	ID         int64
	UserID     int64
	ActivityID int64
	StartTime  time.Time
	EndTime    time.Time
	Comment    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	User     User
	Activity Activity
}

// Duration returns the signed length of the track.
func (t Track) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Cursor models the keyset pagination token for track listings.
type Cursor struct {
	StartTime time.Time
	ID        int64
}

// TrackFilter narrows a track listing. From/To bound start_time as [From, To).
type TrackFilter struct {
	From       *time.Time
	To         *time.Time
	UserID     *int64
	ActivityID *int64
	Cursor     *Cursor
	Limit      int
}
