// Package sqlite implements domain.Store on an embedded SQLite database through GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/observability"
	"example.com/timetrack/internal/persistence"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type userRow struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (userRow) TableName() string { return "users" }

type activityRow struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (activityRow) TableName() string { return "activities" }

type trackRow struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"not null;index"`
	ActivityID int64     `gorm:"not null;index"`
	StartTime  time.Time `gorm:"not null;index"`
	EndTime    time.Time `gorm:"not null"`
	Comment    *string
	CreatedAt  time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime:false"`

	User     userRow     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Activity activityRow `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE"`
}

func (trackRow) TableName() string { return "tracks" }

// Store persists users, activities and tracks in a SQLite file.
type Store struct {
	db *gorm.DB
}

// Open connects to the database at path, creating parent directories and
// migrating the schema. Use MemoryPath for an ephemeral database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialised and an in-memory database alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&userRow{}, &activityRow{}, &trackRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser implements domain.UserRepository.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	row := userRow{Name: user.Name, CreatedAt: user.CreatedAt.UTC(), UpdatedAt: user.UpdatedAt.UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	user.ID = row.ID
	return nil
}

// GetUser implements domain.UserRepository.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := row.toDomain()
	return &user, nil
}

// ListUsers implements domain.UserRepository.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

// UpdateUser implements domain.UserRepository.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	return s.updateName(ctx, &userRow{}, user.ID, user.Name, user.UpdatedAt)
}

// DeleteUser implements domain.UserRepository, cascading to tracks.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteOwner(ctx, &userRow{}, "user_id", id)
}

// CreateActivity implements domain.ActivityRepository.
func (s *Store) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	row := activityRow{Name: activity.Name, CreatedAt: activity.CreatedAt.UTC(), UpdatedAt: activity.UpdatedAt.UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	activity.ID = row.ID
	return nil
}

// GetActivity implements domain.ActivityRepository.
func (s *Store) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	var row activityRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	activity := row.toDomain()
	return &activity, nil
}

// ListActivities implements domain.ActivityRepository.
func (s *Store) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	var rows []activityRow
	if err := s.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	activities := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toDomain())
	}
	return activities, nil
}

// UpdateActivity implements domain.ActivityRepository.
func (s *Store) UpdateActivity(ctx context.Context, activity *domain.Activity) error {
	return s.updateName(ctx, &activityRow{}, activity.ID, activity.Name, activity.UpdatedAt)
}

// DeleteActivity implements domain.ActivityRepository, cascading to tracks.
func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	return s.deleteOwner(ctx, &activityRow{}, "activity_id", id)
}

func (s *Store) updateName(ctx context.Context, model any, id int64, name string, updatedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(map[string]any{
		"name":       name,
		"updated_at": updatedAt.UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) deleteOwner(ctx context.Context, model any, column string, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(column+" = ?", id).Delete(&trackRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(model, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// CreateTrack implements domain.TrackRepository.
func (s *Store) CreateTrack(ctx context.Context, track *domain.Track) error {
	row := fromTrack(*track)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkRefs(tx, row.UserID, row.ActivityID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	if err != nil {
		return err
	}
	track.ID = row.ID
	observability.RecordTrackPersisted(track.UpdatedAt)
	return nil
}

// GetTrack implements domain.TrackRepository.
func (s *Store) GetTrack(ctx context.Context, id int64) (*domain.Track, error) {
	var row trackRow
	err := s.tracks(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	track := row.toDomain()
	return &track, nil
}

// ListTracks implements domain.TrackRepository, newest first.
func (s *Store) ListTracks(ctx context.Context, filter domain.TrackFilter) ([]domain.Track, *domain.Cursor, error) {
	q := s.tracks(ctx)
	if filter.From != nil {
		q = q.Where("start_time >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("start_time < ?", filter.To.UTC())
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.ActivityID != nil {
		q = q.Where("activity_id = ?", *filter.ActivityID)
	}
	if c := filter.Cursor; c != nil {
		at := c.StartTime.UTC()
		q = q.Where("start_time < ? OR (start_time = ? AND id < ?)", at, at, c.ID)
	}
	q = q.Order("start_time DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []trackRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	tracks := toTracks(rows)
	return tracks, persistence.NextCursor(tracks, filter.Limit), nil
}

// ListTracksInRange implements domain.TrackRepository.
func (s *Store) ListTracksInRange(ctx context.Context, from, to time.Time) ([]domain.Track, error) {
	var rows []trackRow
	err := s.tracks(ctx).
		Where("start_time >= ? AND start_time < ?", from.UTC(), to.UTC()).
		Order("start_time, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toTracks(rows), nil
}

// UpdateTrack implements domain.TrackRepository.
func (s *Store) UpdateTrack(ctx context.Context, track *domain.Track) error {
	row := fromTrack(*track)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&trackRow{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		if err := checkRefs(tx, row.UserID, row.ActivityID); err != nil {
			return err
		}
		return tx.Model(&trackRow{}).Where("id = ?", row.ID).Updates(map[string]any{
			"user_id":     row.UserID,
			"activity_id": row.ActivityID,
			"start_time":  row.StartTime,
			"end_time":    row.EndTime,
			"comment":     row.Comment,
			"updated_at":  row.UpdatedAt,
		}).Error
	})
	if err != nil {
		return err
	}
	observability.RecordTrackPersisted(track.UpdatedAt)
	return nil
}

// DeleteTrack implements domain.TrackRepository.
func (s *Store) DeleteTrack(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&trackRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) tracks(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&trackRow{}).Preload("User").Preload("Activity")
}

func checkRefs(tx *gorm.DB, userID, activityID int64) error {
	verr := &domain.ValidationError{}
	var count int64
	if err := tx.Model(&userRow{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		verr.Add("user_id", "user does not exist")
	}
	if err := tx.Model(&activityRow{}).Where("id = ?", activityID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		verr.Add("activity_id", "activity does not exist")
	}
	return verr.OrNil()
}

func (r userRow) toDomain() domain.User {
	return domain.User{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}
}

func (r trackRow) toDomain() domain.Track {
	return domain.Track{
		ID:         r.ID,
		UserID:     r.UserID,
		ActivityID: r.ActivityID,
		StartTime:  r.StartTime.UTC(),
		EndTime:    r.EndTime.UTC(),
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		User:       r.User.toDomain(),
		Activity:   r.Activity.toDomain(),
	}
}

func fromTrack(t domain.Track) trackRow {
	return trackRow{
		ID:         t.ID,
		UserID:     t.UserID,
		ActivityID: t.ActivityID,
		StartTime:  t.StartTime.UTC(),
		EndTime:    t.EndTime.UTC(),
		Comment:    t.Comment,
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  t.UpdatedAt.UTC(),
	}
}

func toTracks(rows []trackRow) []domain.Track {
	tracks := make([]domain.Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, row.toDomain())
	}
	return tracks
}
