package dto

import (
	"regexp"
	"time"
)

var eventCodePattern = regexp.MustCompile(`^\d{4}$`)

// ValidEventCode reports whether code is exactly 4 ASCII digits.
func ValidEventCode(code string) bool {
	return eventCodePattern.MatchString(code)
}

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Name      string     `json:"name" binding:"required,min=1,max=200"`
	EventCode string     `json:"event_code" binding:"required"`
	Location  string     `json:"location" binding:"max=500"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsActive  bool       `json:"is_active"`
}

// Validate validates the CreateEventRequest
func (r *CreateEventRequest) Validate() (bool, string) {
	if r.Name == "" {
		return false, "Event name is required"
	}
	if !ValidEventCode(r.EventCode) {
		return false, "Event code must be exactly 4 digits"
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return false, "End date must be after start date"
	}
	return true, ""
}

// UpdateEventRequest represents a partial update to an event. Nil fields are
// left untouched; the event code and active flag have dedicated operations.
type UpdateEventRequest struct {
	Name      *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Location  *string    `json:"location" binding:"omitempty,max=500"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// Validate validates the UpdateEventRequest
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Name == nil && r.Location == nil && r.StartDate == nil && r.EndDate == nil {
		return false, "At least one field must be provided for update"
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return false, "End date must be after start date"
	}
	return true, ""
}

// EventResponse represents the response for an event
type EventResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	EventCode           string `json:"event_code"`
	IsActive            bool   `json:"is_active"`
	Location            string `json:"location"`
	StartDate           string `json:"start_date,omitempty"`
	EndDate             string `json:"end_date,omitempty"`
	CurrentParticipants int    `json:"current_participants"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// EventListResponse represents a list of events
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// EventListFilter represents filters for listing events
type EventListFilter struct {
	Active *bool `form:"active"`
	Limit  int   `form:"limit"`
	Offset int   `form:"offset"`
}

// SetDefaults sets default values for pagination
func (f *EventListFilter) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
