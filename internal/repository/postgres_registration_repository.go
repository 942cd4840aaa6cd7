package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventgate/checkin/internal/domain"
)

// PostgresRegistrationRepository implements RegistrationRepository using PostgreSQL
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

// FindByUserAndEvent retrieves the registration for (user, event)
func (r *PostgresRegistrationRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	query := `
		SELECT id, user_id, event_id, registered_at, created_at
		FROM registrations
		WHERE user_id = $1 AND event_id = $2
	`
	reg := &domain.Registration{}
	err := r.pool.QueryRow(ctx, query, userID, eventID).Scan(
		&reg.ID,
		&reg.UserID,
		&reg.EventID,
		&reg.RegisteredAt,
		&reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

// Admit records a registration inside a single transaction.
//
// The pre-transaction validation in the service layer gives friendly error
// ordering, but two concurrent requests can both pass it: a read-then-write
// sequence on the participant list is a classic race. The transaction below
// is the correctness boundary. SELECT ... FOR UPDATE serialises concurrent
// admissions on the same event row, the duplicate and window checks are
// repeated under the lock, and both writes commit or neither does. A unique
// index on (user_id, event_id) backstops the duplicate check across events
// that never contend on the same row lock.
func (r *PostgresRegistrationRepository) Admit(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the event row and re-check admissibility under the lock.
	var isActive bool
	var startDate, endDate *time.Time
	err = tx.QueryRow(ctx,
		`SELECT is_active, start_date, end_date
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&isActive, &startDate, &endDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	if !isActive {
		err = domain.ErrEventNotFound
		return nil, err
	}

	now := time.Now().UTC()
	locked := &domain.Event{StartDate: startDate, EndDate: endDate}
	if locked.HasWindow() && !locked.InWindow(now) {
		err = &domain.CheckinClosedError{ScheduledTime: startDate}
		return nil, err
	}

	var priorRegisteredAt time.Time
	err = tx.QueryRow(ctx,
		`SELECT registered_at FROM registrations WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	).Scan(&priorRegisteredAt)
	if err == nil {
		err = &domain.AlreadyCheckedInError{CheckedInAt: priorRegisteredAt}
		return nil, err
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET participants = array_append(participants, $2),
		     current_participants = current_participants + 1,
		     updated_at = $3
		 WHERE id = $1`,
		eventID, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("append participant: %w", err)
	}

	reg := &domain.Registration{
		ID:           uuid.New().String(),
		UserID:       userID,
		EventID:      eventID,
		RegisteredAt: now,
		CreatedAt:    now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, event_id, registered_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.UserID, reg.EventID, reg.RegisteredAt, reg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent attempt committed first; the conflict must
			// carry that row's timestamp, not this request's clock.
			var checkedInAt time.Time
			if scanErr := r.pool.QueryRow(ctx,
				`SELECT registered_at FROM registrations WHERE user_id = $1 AND event_id = $2`,
				userID, eventID,
			).Scan(&checkedInAt); scanErr != nil {
				checkedInAt = now
			}
			err = &domain.AlreadyCheckedInError{CheckedInAt: checkedInAt}
		}
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return reg, nil
}

// ListByEvent retrieves an event's registrations with pagination, oldest first
func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error) {
	var totalCount int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
		eventID,
	).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, event_id, registered_at, created_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC
		 LIMIT $2 OFFSET $3`,
		eventID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg := &domain.Registration{}
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.RegisteredAt, &reg.CreatedAt); err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}

	return regs, totalCount, rows.Err()
}

// ListByUser retrieves a user's registrations joined with their events, newest first
func (r *PostgresRegistrationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.UserRegistration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.user_id, r.event_id, r.registered_at, r.created_at,
		        e.name, COALESCE(e.location, '') as location, e.start_date
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.user_id = $1
		 ORDER BY r.registered_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*domain.UserRegistration, 0)
	for rows.Next() {
		reg := &domain.UserRegistration{}
		err := rows.Scan(
			&reg.ID,
			&reg.UserID,
			&reg.EventID,
			&reg.RegisteredAt,
			&reg.CreatedAt,
			&reg.EventName,
			&reg.EventLocation,
			&reg.EventDate,
		)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}
