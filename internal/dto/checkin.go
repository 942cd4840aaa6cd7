package dto

// CheckInRequest is the body of POST /api/v1/checkin.
type CheckInRequest struct {
	EventCode string `json:"eventCode" binding:"required"`
}

// CheckInResponse is the flat success shape returned by the check-in
// endpoint. This shape is a wire contract consumed by existing clients and
// deliberately does not use the shared response envelope.
type CheckInResponse struct {
	Success       bool   `json:"success"`
	EventID       string `json:"eventId"`
	EventName     string `json:"eventName"`
	EventDate     string `json:"eventDate"` // RFC3339 start date, empty when unbounded
	EventLocation string `json:"eventLocation"`
	Message       string `json:"message"`
}

// CheckInFailure is the flat failure shape for the check-in endpoint.
// ScheduledTime accompanies time-window rejections (403) when the event has a
// start bound; CheckedInAt accompanies duplicate rejections (409).
type CheckInFailure struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	ScheduledTime string `json:"scheduledTime,omitempty"`
	CheckedInAt   string `json:"checkedInAt,omitempty"`
}

// RegistrationResponse represents one attendance record on an event.
type RegistrationResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	EventID      string `json:"event_id"`
	RegisteredAt string `json:"registered_at"`
}

// MyRegistrationResponse is a registration joined with its event, returned
// by the participant history endpoint.
type MyRegistrationResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name"`
	EventLocation string `json:"event_location"`
	EventDate     string `json:"event_date,omitempty"`
	RegisteredAt  string `json:"registered_at"`
}

// RegistrationListResponse is a paginated list of registrations.
type RegistrationListResponse struct {
	Registrations []*RegistrationResponse `json:"registrations"`
	Total         int                     `json:"total"`
	Limit         int                     `json:"limit"`
	Offset        int                     `json:"offset"`
}
