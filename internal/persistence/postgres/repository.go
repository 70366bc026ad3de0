// Package postgres implements domain.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/events"
	"example.com/timetrack/internal/observability"
	"example.com/timetrack/internal/persistence"
)

const foreignKeyViolation = "23503"

// Option configures optional Repository behaviour.
type Option func(*Repository)

// WithOutbox makes every track mutation record an outbox event in the same transaction.
func WithOutbox() Option {
	return func(r *Repository) { r.outbox = true }
}

// WithClock overrides the clock stamped on outbox payloads.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository provides Postgres-backed persistence for users, activities, tracks and outbox events.
type Repository struct {
	pool   *pgxpool.Pool
	outbox bool
	now    func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scanner interface {
	Scan(dest ...any) error
}

// CreateUser implements domain.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (name, created_at, updated_at) VALUES ($1,$2,$3) RETURNING id`,
		user.Name, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	).Scan(&user.ID)
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM users WHERE id=$1`, id)
	user, err := scanNamed(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := domain.User(user)
	return &u, nil
}

// ListUsers implements domain.UserRepository.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		n, err := scanNamed(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, domain.User(n))
	}
	return users, rows.Err()
}

// UpdateUser implements domain.UserRepository.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name=$1, updated_at=$2 WHERE id=$3`, user.Name, user.UpdatedAt.UTC(), user.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUser implements domain.UserRepository. Tracks of the user are removed with it.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return r.deleteOwner(ctx, "users", "user_id", "user_deleted", id)
}

// CreateActivity implements domain.ActivityRepository.
func (r *Repository) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO activities (name, created_at, updated_at) VALUES ($1,$2,$3) RETURNING id`,
		activity.Name, activity.CreatedAt.UTC(), activity.UpdatedAt.UTC(),
	).Scan(&activity.ID)
}

// GetActivity implements domain.ActivityRepository.
func (r *Repository) GetActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM activities WHERE id=$1`, id)
	n, err := scanNamed(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := domain.Activity(n)
	return &a, nil
}

// ListActivities implements domain.ActivityRepository.
func (r *Repository) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM activities ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		n, err := scanNamed(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, domain.Activity(n))
	}
	return activities, rows.Err()
}

// UpdateActivity implements domain.ActivityRepository.
func (r *Repository) UpdateActivity(ctx context.Context, activity *domain.Activity) error {
	tag, err := r.pool.Exec(ctx, `UPDATE activities SET name=$1, updated_at=$2 WHERE id=$3`, activity.Name, activity.UpdatedAt.UTC(), activity.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteActivity implements domain.ActivityRepository. Tracks of the activity are removed with it.
func (r *Repository) DeleteActivity(ctx context.Context, id int64) error {
	return r.deleteOwner(ctx, "activities", "activity_id", "activity_deleted", id)
}

// deleteOwner removes dependent tracks explicitly so that each one gets a
// track.deleted event, then removes the owning row.
func (r *Repository) deleteOwner(ctx context.Context, table, column, reason string, id int64) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, fmt.Sprintf(`DELETE FROM tracks WHERE %s=$1 RETURNING id, user_id, activity_id`, column), id)
	if err != nil {
		return err
	}
	removed := make([]domain.Track, 0)
	for rows.Next() {
		var tr domain.Track
		if err = rows.Scan(&tr.ID, &tr.UserID, &tr.ActivityID); err != nil {
			rows.Close()
			return err
		}
		removed = append(removed, tr)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrNotFound
		return err
	}

	for _, tr := range removed {
		if err = r.recordDeleted(ctx, tx, tr, reason); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const trackColumns = `t.id, t.user_id, t.activity_id, t.start_time, t.end_time, t.comment, t.created_at, t.updated_at,
        u.id, u.name, u.created_at, u.updated_at,
        a.id, a.name, a.created_at, a.updated_at`

const trackFrom = ` FROM tracks t
        JOIN users u ON u.id = t.user_id
        JOIN activities a ON a.id = t.activity_id`

// CreateTrack implements domain.TrackRepository.
func (r *Repository) CreateTrack(ctx context.Context, track *domain.Track) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx,
		`INSERT INTO tracks (user_id, activity_id, start_time, end_time, comment, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		track.UserID, track.ActivityID, track.StartTime.UTC(), track.EndTime.UTC(), track.Comment, track.CreatedAt.UTC(), track.UpdatedAt.UTC(),
	).Scan(&track.ID)
	if err != nil {
		err = mapWriteError(err)
		return err
	}

	if err = r.recordChanged(ctx, tx, *track, events.TypeTrackCreated); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordTrackPersisted(track.UpdatedAt)
	return nil
}

// GetTrack implements domain.TrackRepository.
func (r *Repository) GetTrack(ctx context.Context, id int64) (*domain.Track, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trackColumns+trackFrom+` WHERE t.id=$1`, id)
	tr, err := scanTrack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// ListTracks implements domain.TrackRepository, ordered by start_time then id, newest first.
func (r *Repository) ListTracks(ctx context.Context, filter domain.TrackFilter) ([]domain.Track, *domain.Cursor, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.From != nil {
		conds = append(conds, "t.start_time >= "+arg(filter.From.UTC()))
	}
	if filter.To != nil {
		conds = append(conds, "t.start_time < "+arg(filter.To.UTC()))
	}
	if filter.UserID != nil {
		conds = append(conds, "t.user_id = "+arg(*filter.UserID))
	}
	if filter.ActivityID != nil {
		conds = append(conds, "t.activity_id = "+arg(*filter.ActivityID))
	}
	if filter.Cursor != nil {
		conds = append(conds, fmt.Sprintf("(t.start_time, t.id) < (%s, %s)", arg(filter.Cursor.StartTime.UTC()), arg(filter.Cursor.ID)))
	}

	query := `SELECT ` + trackColumns + trackFrom
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.start_time DESC, t.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	tracks, err := r.queryTracks(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	return tracks, persistence.NextCursor(tracks, filter.Limit), nil
}

// ListTracksInRange implements domain.TrackRepository, returning tracks with start_time in [from, to).
func (r *Repository) ListTracksInRange(ctx context.Context, from, to time.Time) ([]domain.Track, error) {
	return r.queryTracks(ctx,
		`SELECT `+trackColumns+trackFrom+` WHERE t.start_time >= $1 AND t.start_time < $2 ORDER BY t.start_time, t.id`,
		from.UTC(), to.UTC(),
	)
}

func (r *Repository) queryTracks(ctx context.Context, query string, args ...any) ([]domain.Track, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make([]domain.Track, 0)
	for rows.Next() {
		tr, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	return tracks, rows.Err()
}

// UpdateTrack implements domain.TrackRepository.
func (r *Repository) UpdateTrack(ctx context.Context, track *domain.Track) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE tracks SET user_id=$1, activity_id=$2, start_time=$3, end_time=$4, comment=$5, updated_at=$6 WHERE id=$7`,
		track.UserID, track.ActivityID, track.StartTime.UTC(), track.EndTime.UTC(), track.Comment, track.UpdatedAt.UTC(), track.ID,
	)
	if err != nil {
		err = mapWriteError(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrNotFound
		return err
	}

	if err = r.recordChanged(ctx, tx, *track, events.TypeTrackUpdated); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordTrackPersisted(track.UpdatedAt)
	return nil
}

// DeleteTrack implements domain.TrackRepository.
func (r *Repository) DeleteTrack(ctx context.Context, id int64) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var tr domain.Track
	err = tx.QueryRow(ctx, `DELETE FROM tracks WHERE id=$1 RETURNING id, user_id, activity_id`, id).Scan(&tr.ID, &tr.UserID, &tr.ActivityID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
		return err
	}
	if err != nil {
		return err
	}

	if err = r.recordDeleted(ctx, tx, tr, "track_deleted"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) recordChanged(ctx context.Context, tx pgx.Tx, track domain.Track, eventType string) error {
	if !r.outbox {
		return nil
	}
	return r.insertOutbox(ctx, tx, track, eventType, events.TrackChanged{
		TrackID:     track.ID,
		UserID:      track.UserID,
		ActivityID:  track.ActivityID,
		StartTime:   track.StartTime.UTC(),
		EndTime:     track.EndTime.UTC(),
		DurationMin: track.Duration().Minutes(),
		Comment:     track.Comment,
		OccurredAt:  r.now().UTC(),
		Version:     events.SchemaVersion,
	})
}

func (r *Repository) recordDeleted(ctx context.Context, tx pgx.Tx, track domain.Track, reason string) error {
	if !r.outbox {
		return nil
	}
	return r.insertOutbox(ctx, tx, track, events.TypeTrackDeleted, events.TrackDeleted{
		TrackID:    track.ID,
		UserID:     track.UserID,
		ActivityID: track.ActivityID,
		Reason:     reason,
		OccurredAt: r.now().UTC(),
	})
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, track domain.Track, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"track",
		strconv.FormatInt(track.ID, 10),
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(track),
		body,
	)
	return err
}

func scanNamed(row scanner) (named, error) {
	var n named
	if err := row.Scan(&n.ID, &n.Name, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return named{}, err
	}
	n.CreatedAt, n.UpdatedAt = n.CreatedAt.UTC(), n.UpdatedAt.UTC()
	return n, nil
}

// named mirrors the shared shape of users and activities for conversion.
type named struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func scanTrack(row scanner) (domain.Track, error) {
	var tr domain.Track
	if err := row.Scan(
		&tr.ID, &tr.UserID, &tr.ActivityID, &tr.StartTime, &tr.EndTime, &tr.Comment, &tr.CreatedAt, &tr.UpdatedAt,
		&tr.User.ID, &tr.User.Name, &tr.User.CreatedAt, &tr.User.UpdatedAt,
		&tr.Activity.ID, &tr.Activity.Name, &tr.Activity.CreatedAt, &tr.Activity.UpdatedAt,
	); err != nil {
		return domain.Track{}, err
	}
	tr.StartTime, tr.EndTime = tr.StartTime.UTC(), tr.EndTime.UTC()
	tr.CreatedAt, tr.UpdatedAt = tr.CreatedAt.UTC(), tr.UpdatedAt.UTC()
	return tr, nil
}

// mapWriteError turns foreign key violations into validation errors on the offending field.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != foreignKeyViolation {
		return err
	}
	verr := &domain.ValidationError{}
	switch {
	case strings.Contains(pgErr.ConstraintName, "activity"):
		verr.Add("activity_id", "activity does not exist")
	default:
		verr.Add("user_id", "user does not exist")
	}
	return verr
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Track) string
}

func byUser(t domain.Track) string { return strconv.FormatInt(t.UserID, 10) }

var eventCatalog = map[string]EventMetadata{
	events.TypeTrackCreated: {Topic: events.TopicTrackEvents, SchemaSubject: events.SubjectTrackChanged, PartitionKeyFn: byUser},
	events.TypeTrackUpdated: {Topic: events.TopicTrackEvents, SchemaSubject: events.SubjectTrackChanged, PartitionKeyFn: byUser},
	events.TypeTrackDeleted: {Topic: events.TopicTrackEvents, SchemaSubject: events.SubjectTrackDeleted, PartitionKeyFn: byUser},
}
