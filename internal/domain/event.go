package domain

import "time"

// Event represents a check-in event in the system
type Event struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	EventCode           string     `json:"event_code"` // 4 ASCII digits, leading zeros significant
	IsActive            bool       `json:"is_active"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Location            string     `json:"location"`
	Participants        []string   `json:"participants"`
	CurrentParticipants int        `json:"current_participants"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasWindow reports whether the event restricts check-ins to a time window.
// Events without any bound accept check-ins at any time.
func (e *Event) HasWindow() bool {
	return e.StartDate != nil || e.EndDate != nil
}

// InWindow reports whether now falls inside the event's check-in window.
// Each bound is enforced only when present.
func (e *Event) InWindow(now time.Time) bool {
	if e.StartDate != nil && now.Before(*e.StartDate) {
		return false
	}
	if e.EndDate != nil && now.After(*e.EndDate) {
		return false
	}
	return true
}

// Registration records one user's admission to one event. Created exactly
// once per successful check-in, immutable thereafter.
type Registration struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EventID      string    `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRegistration is a registration joined with its event, for history views.
type UserRegistration struct {
	Registration
	EventName     string     `json:"event_name"`
	EventLocation string     `json:"event_location"`
	EventDate     *time.Time `json:"event_date,omitempty"`
}
