package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventgate/checkin/internal/domain"
)

const uniqueViolationCode = "23505"

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Create creates a new event. The partial unique index on active event codes
// rejects a second active event with the same code; that violation surfaces
// as domain.ErrDuplicateEventCode.
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, name, event_code, is_active, start_date, end_date, location,
		                    participants, current_participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Name,
		event.EventCode,
		event.IsActive,
		event.StartDate,
		event.EndDate,
		event.Location,
		event.Participants,
		event.CurrentParticipants,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEventCode
	}
	return err
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, name, event_code, is_active, start_date, end_date, COALESCE(location, '') as location,
		       participants, current_participants, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// FindActiveByCode retrieves the active event with the given code. Code
// uniqueness among active events is enforced at write time, so a single
// match is guaranteed.
func (r *PostgresEventRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Event, error) {
	query := `
		SELECT id, name, event_code, is_active, start_date, end_date, COALESCE(location, '') as location,
		       participants, current_participants, created_at, updated_at
		FROM events
		WHERE event_code = $1 AND is_active = true
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, code))
}

// List retrieves events with pagination and an optional active filter
func (r *PostgresEventRepository) List(ctx context.Context, limit, offset int, isActive *bool) ([]*domain.Event, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if isActive != nil {
		whereClause = fmt.Sprintf("WHERE is_active = $%d", argIndex)
		args = append(args, *isActive)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events %s", whereClause)
	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, event_code, is_active, start_date, end_date, COALESCE(location, '') as location,
		       participants, current_participants, created_at, updated_at
		FROM events
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event := &domain.Event{}
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.EventCode,
			&event.IsActive,
			&event.StartDate,
			&event.EndDate,
			&event.Location,
			&event.Participants,
			&event.CurrentParticipants,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	return events, totalCount, rows.Err()
}

// Update updates an event's name, window, and location
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET name = $2, start_date = $3, end_date = $4, location = $5, updated_at = $6
		WHERE id = $1
	`
	event.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Name,
		event.StartDate,
		event.EndDate,
		event.Location,
		event.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// SetActive flips the active flag. Activating an event whose code is already
// held by another active event violates the partial unique index and surfaces
// as domain.ErrDuplicateEventCode.
func (r *PostgresEventRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE events
		SET is_active = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, active, time.Now())
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEventCode
	}
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// ActiveCodeExists reports whether an active event other than excludeID holds the code
func (r *PostgresEventRepository) ActiveCodeExists(ctx context.Context, code string, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM events WHERE event_code = $1 AND is_active = true AND id <> $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, code, excludeID).Scan(&exists)
	return exists, err
}

func (r *PostgresEventRepository) scanOne(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.EventCode,
		&event.IsActive,
		&event.StartDate,
		&event.EndDate,
		&event.Location,
		&event.Participants,
		&event.CurrentParticipants,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
