// Package memory provides an in-process Store used by tests and single-process demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/observability"
	"example.com/timetrack/internal/persistence"
)

// Store keeps users, activities and tracks in maps guarded by a RWMutex.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]domain.User
	activities map[int64]domain.Activity
	tracks     map[int64]domain.Track
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[int64]domain.User),
		activities: make(map[int64]domain.Activity),
		tracks:     make(map[int64]domain.Track),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// CreateUser implements domain.UserRepository.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.id()
	s.users[user.ID] = *user
	return nil
}

// GetUser implements domain.UserRepository.
func (s *Store) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// ListUsers implements domain.UserRepository.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateUser implements domain.UserRepository.
func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

// DeleteUser implements domain.UserRepository, cascading to tracks.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	for tid, tr := range s.tracks {
		if tr.UserID == id {
			delete(s.tracks, tid)
		}
	}
	return nil
}

// CreateActivity implements domain.ActivityRepository.
func (s *Store) CreateActivity(_ context.Context, activity *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity.ID = s.id()
	s.activities[activity.ID] = *activity
	return nil
}

// GetActivity implements domain.ActivityRepository.
func (s *Store) GetActivity(_ context.Context, id int64) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activity, ok := s.activities[id]
	if !ok {
		return nil, nil
	}
	return &activity, nil
}

// ListActivities implements domain.ActivityRepository.
func (s *Store) ListActivities(_ context.Context) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateActivity implements domain.ActivityRepository.
func (s *Store) UpdateActivity(_ context.Context, activity *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activity.ID]; !ok {
		return domain.ErrNotFound
	}
	s.activities[activity.ID] = *activity
	return nil
}

// DeleteActivity implements domain.ActivityRepository, cascading to tracks.
func (s *Store) DeleteActivity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.activities, id)
	for tid, tr := range s.tracks {
		if tr.ActivityID == id {
			delete(s.tracks, tid)
		}
	}
	return nil
}

// CreateTrack implements domain.TrackRepository.
func (s *Store) CreateTrack(_ context.Context, track *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefs(track); err != nil {
		return err
	}
	track.ID = s.id()
	s.tracks[track.ID] = stripped(*track)
	observability.RecordTrackPersisted(track.UpdatedAt)
	return nil
}

// GetTrack implements domain.TrackRepository.
func (s *Store) GetTrack(_ context.Context, id int64) (*domain.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tr, ok := s.tracks[id]
	if !ok {
		return nil, nil
	}
	tr = s.hydrate(tr)
	return &tr, nil
}

// ListTracks implements domain.TrackRepository.
func (s *Store) ListTracks(_ context.Context, filter domain.TrackFilter) ([]domain.Track, *domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Track, 0)
	for _, tr := range s.tracks {
		if filter.From != nil && tr.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !tr.StartTime.Before(*filter.To) {
			continue
		}
		if filter.UserID != nil && tr.UserID != *filter.UserID {
			continue
		}
		if filter.ActivityID != nil && tr.ActivityID != *filter.ActivityID {
			continue
		}
		if !persistence.After(filter.Cursor, tr.StartTime, tr.ID) {
			continue
		}
		out = append(out, s.hydrate(tr))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, persistence.NextCursor(out, filter.Limit), nil
}

// ListTracksInRange implements domain.TrackRepository, ordered by start_time then id.
func (s *Store) ListTracksInRange(_ context.Context, from, to time.Time) ([]domain.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Track, 0)
	for _, tr := range s.tracks {
		if !tr.StartTime.Before(from) && tr.StartTime.Before(to) {
			out = append(out, s.hydrate(tr))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateTrack implements domain.TrackRepository.
func (s *Store) UpdateTrack(_ context.Context, track *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[track.ID]; !ok {
		return domain.ErrNotFound
	}
	if err := s.checkRefs(track); err != nil {
		return err
	}
	s.tracks[track.ID] = stripped(*track)
	observability.RecordTrackPersisted(track.UpdatedAt)
	return nil
}

// DeleteTrack implements domain.TrackRepository.
func (s *Store) DeleteTrack(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.tracks, id)
	return nil
}

func (s *Store) checkRefs(track *domain.Track) error {
	verr := &domain.ValidationError{}
	if _, ok := s.users[track.UserID]; !ok {
		verr.Add("user_id", "user does not exist")
	}
	if _, ok := s.activities[track.ActivityID]; !ok {
		verr.Add("activity_id", "activity does not exist")
	}
	return verr.OrNil()
}

func (s *Store) hydrate(tr domain.Track) domain.Track {
	tr.User = s.users[tr.UserID]
	tr.Activity = s.activities[tr.ActivityID]
	return tr
}

func stripped(tr domain.Track) domain.Track {
	tr.User, tr.Activity = domain.User{}, domain.Activity{}
	if tr.Comment != nil {
		c := *tr.Comment
		tr.Comment = &c
	}
	return tr
}
