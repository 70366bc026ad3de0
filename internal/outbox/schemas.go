package outbox

import "example.com/timetrack/internal/events"

const trackChangedSchema = `{
  "type": "object",
  "title": "TrackChanged",
  "properties": {
    "track_id": {"type": "integer"},
    "user_id": {"type": "integer"},
    "activity_id": {"type": "integer"},
    "start_time": {"type": "string", "format": "date-time"},
    "end_time": {"type": "string", "format": "date-time"},
    "duration_min": {"type": "number"},
    "comment": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"},
    "version": {"type": "string"}
  },
  "required": ["track_id", "user_id", "activity_id", "start_time", "end_time", "duration_min", "occurred_at", "version"],
  "additionalProperties": false
}`

const trackDeletedSchema = `{
  "type": "object",
  "title": "TrackDeleted",
  "properties": {
    "track_id": {"type": "integer"},
    "user_id": {"type": "integer"},
    "activity_id": {"type": "integer"},
    "reason": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["track_id", "user_id", "activity_id", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps an event type to its JSON schema.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeTrackCreated: {Schema: trackChangedSchema},
	events.TypeTrackUpdated: {Schema: trackChangedSchema},
	events.TypeTrackDeleted: {Schema: trackDeletedSchema},
}
