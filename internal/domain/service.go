// Package domain defines the entities and CRUD workflows of the time tracking service.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLength = 255

	// DefaultTrackLimit is the page size used when a listing does not ask for one.
	DefaultTrackLimit = 50
	// MaxTrackLimit caps the page size of a track listing.
	MaxTrackLimit = 500
)

// UserRepository captures user persistence.
// GetUser returns (nil, nil) when the user does not exist; UpdateUser and DeleteUser return ErrNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id int64) error
}

// ActivityRepository captures activity persistence with the same conventions as UserRepository.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *Activity) error
	GetActivity(ctx context.Context, id int64) (*Activity, error)
	ListActivities(ctx context.Context) ([]Activity, error)
	UpdateActivity(ctx context.Context, activity *Activity) error
	DeleteActivity(ctx context.Context, id int64) error
}

// TrackRepository captures track persistence. Reads return tracks with User and Activity populated.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *Track) error
	GetTrack(ctx context.Context, id int64) (*Track, error)
	ListTracks(ctx context.Context, filter TrackFilter) ([]Track, *Cursor, error)
	ListTracksInRange(ctx context.Context, from, to time.Time) ([]Track, error)
	UpdateTrack(ctx context.Context, track *Track) error
	DeleteTrack(ctx context.Context, id int64) error
}

// Store is the full persistence surface used by the Service.
type Store interface {
	UserRepository
	ActivityRepository
	TrackRepository
}

// Service orchestrates CRUD workflows over users, activities and tracks.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithNow overrides the clock used for created_at/updated_at.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs a Service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NameInput is the writable payload of users and activities.
type NameInput struct {
	Name *string
}

func (in NameInput) validate(partial bool) (string, error) {
	verr := &ValidationError{}
	var name string
	switch {
	case in.Name == nil && !partial:
		verr.Add("name", "this field is required")
	case in.Name != nil:
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			verr.Add("name", "this field may not be blank")
		} else if utf8.RuneCountInString(name) > maxNameLength {
			verr.Add("name", fmt.Sprintf("ensure this field has no more than %d characters", maxNameLength))
		}
	}
	return name, verr.OrNil()
}

// CreateUser validates and stores a new user.
func (s *Service) CreateUser(ctx context.Context, in NameInput) (*User, error) {
	name, err := in.validate(false)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &User{Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ListUsers returns every user ordered by name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateUser applies a full (partial=false) or partial update.
func (s *Service) UpdateUser(ctx context.Context, id int64, in NameInput, partial bool) (*User, error) {
	name, err := in.validate(partial)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = name
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return user, nil
}

// DeleteUser removes a user and, by cascade, its tracks.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.store.DeleteUser(ctx, id)
}

// CreateActivity validates and stores a new activity.
func (s *Service) CreateActivity(ctx context.Context, in NameInput) (*Activity, error) {
	name, err := in.validate(false)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	activity := &Activity{Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return activity, nil
}

// GetActivity fetches an activity by id.
func (s *Service) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	activity, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get activity %d: %w", id, err)
	}
	if activity == nil {
		return nil, ErrNotFound
	}
	return activity, nil
}

// ListActivities returns every activity ordered by name.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	return s.store.ListActivities(ctx)
}

// UpdateActivity applies a full or partial update.
func (s *Service) UpdateActivity(ctx context.Context, id int64, in NameInput, partial bool) (*Activity, error) {
	name, err := in.validate(partial)
	if err != nil {
		return nil, err
	}
	activity, err := s.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		activity.Name = name
	}
	activity.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("update activity %d: %w", id, err)
	}
	return activity, nil
}

// DeleteActivity removes an activity and, by cascade, its tracks.
func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	return s.store.DeleteActivity(ctx, id)
}

// TrackInput is the writable payload of a track. Nil fields are absent.
type TrackInput struct {
	UserID     *int64
	ActivityID *int64
	StartTime  *time.Time
	EndTime    *time.Time
	Comment    *string
}

// CreateTrack validates and stores a new track.
func (s *Service) CreateTrack(ctx context.Context, in TrackInput) (*Track, error) {
	track := &Track{}
	if err := s.applyTrackInput(ctx, track, in, false); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	track.CreatedAt, track.UpdatedAt = now, now
	if err := s.store.CreateTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("create track: %w", err)
	}
	return track, nil
}

// GetTrack fetches a track by id.
func (s *Service) GetTrack(ctx context.Context, id int64) (*Track, error) {
	track, err := s.store.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get track %d: %w", id, err)
	}
	if track == nil {
		return nil, ErrNotFound
	}
	return track, nil
}

// UpdateTrack applies a full or partial update.
func (s *Service) UpdateTrack(ctx context.Context, id int64, in TrackInput, partial bool) (*Track, error) {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if !partial {
		track.Comment = nil
	}
	if err := s.applyTrackInput(ctx, track, in, partial); err != nil {
		return nil, err
	}
	track.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("update track %d: %w", id, err)
	}
	return track, nil
}

// DeleteTrack removes a single track.
func (s *Service) DeleteTrack(ctx context.Context, id int64) error {
	return s.store.DeleteTrack(ctx, id)
}

// ListTracks returns a page of tracks ordered by start_time descending.
func (s *Service) ListTracks(ctx context.Context, filter TrackFilter) ([]Track, *Cursor, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, nil, NewParamError("start", filter.From.Format(time.RFC3339), ErrInvalidRange)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultTrackLimit
	}
	if filter.Limit > MaxTrackLimit {
		filter.Limit = MaxTrackLimit
	}
	return s.store.ListTracks(ctx, filter)
}

func (s *Service) applyTrackInput(ctx context.Context, track *Track, in TrackInput, partial bool) error {
	verr := &ValidationError{}
	if !partial {
		if in.UserID == nil {
			verr.Add("user_id", "this field is required")
		}
		if in.ActivityID == nil {
			verr.Add("activity_id", "this field is required")
		}
		if in.StartTime == nil {
			verr.Add("start_time", "this field is required")
		}
		if in.EndTime == nil {
			verr.Add("end_time", "this field is required")
		}
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	if in.UserID != nil {
		user, err := s.store.GetUser(ctx, *in.UserID)
		if err != nil {
			return fmt.Errorf("resolve user %d: %w", *in.UserID, err)
		}
		if user == nil {
			verr.Add("user_id", fmt.Sprintf("user %d does not exist", *in.UserID))
		} else {
			track.UserID, track.User = user.ID, *user
		}
	}
	if in.ActivityID != nil {
		activity, err := s.store.GetActivity(ctx, *in.ActivityID)
		if err != nil {
			return fmt.Errorf("resolve activity %d: %w", *in.ActivityID, err)
		}
		if activity == nil {
			verr.Add("activity_id", fmt.Sprintf("activity %d does not exist", *in.ActivityID))
		} else {
			track.ActivityID, track.Activity = activity.ID, *activity
		}
	}
	if in.StartTime != nil {
		track.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		track.EndTime = in.EndTime.UTC()
	}
	if in.Comment != nil {
		comment := *in.Comment
		track.Comment = &comment
	}
	if !track.StartTime.IsZero() && !track.EndTime.After(track.StartTime) {
		verr.Add("end_time", "end_time must be after start_time")
	}
	return verr.OrNil()
}
