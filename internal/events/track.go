// Package events defines the payloads published for track changes.
package events

import "time"

// Event types written to the outbox.
const (
	TypeTrackCreated = "track.created"
	TypeTrackUpdated = "track.updated"
	TypeTrackDeleted = "track.deleted"
)

// TopicTrackEvents is the Kafka topic carrying every track event.
const TopicTrackEvents = "track_events"

// Schema Registry subjects, one per payload shape (topic-record naming).
const (
	SubjectTrackChanged = TopicTrackEvents + "-TrackChanged"
	SubjectTrackDeleted = TopicTrackEvents + "-TrackDeleted"
)

// TrackChanged is emitted when a track is created or updated.
type TrackChanged struct {
	TrackID     int64     `json:"track_id"`
	UserID      int64     `json:"user_id"`
	ActivityID  int64     `json:"activity_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationMin float64   `json:"duration_min"`
	Comment     *string   `json:"comment,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Version     string    `json:"version"`
}

// TrackDeleted is emitted when a track is removed, directly or by cascade.
type TrackDeleted struct {
	TrackID    int64     `json:"track_id"`
	UserID     int64     `json:"user_id"`
	ActivityID int64     `json:"activity_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SchemaVersion is stamped on TrackChanged payloads.
const SchemaVersion = "v1"
