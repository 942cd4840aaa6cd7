package repository

import (
	"context"

	"github.com/eventgate/checkin/internal/domain"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID, (nil, nil) when absent
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// FindActiveByCode retrieves the active event with the given code,
	// (nil, nil) when absent
	FindActiveByCode(ctx context.Context, code string) (*domain.Event, error)
	// List retrieves events with pagination and an optional active filter
	List(ctx context.Context, limit, offset int, isActive *bool) ([]*domain.Event, int, error)
	// Update updates an event's mutable fields
	Update(ctx context.Context, event *domain.Event) error
	// SetActive flips the active flag
	SetActive(ctx context.Context, id string, active bool) error
	// ActiveCodeExists reports whether another active event holds the code
	ActiveCodeExists(ctx context.Context, code string, excludeID string) (bool, error)
}

// RegistrationRepository defines the interface for registration data access
type RegistrationRepository interface {
	// FindByUserAndEvent retrieves the registration for (user, event),
	// (nil, nil) when absent
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*domain.Registration, error)
	// Admit atomically records a registration: locks the event row,
	// re-checks admissibility under the lock, appends the participant and
	// inserts the registration in one transaction
	Admit(ctx context.Context, userID, eventID string) (*domain.Registration, error)
	// ListByEvent retrieves an event's registrations with pagination
	ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error)
	// ListByUser retrieves a user's registrations joined with their events,
	// newest first
	ListByUser(ctx context.Context, userID string) ([]*domain.UserRegistration, error)
}
