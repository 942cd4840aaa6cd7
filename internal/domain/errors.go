package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEventCode is returned before any store access when the
	// submitted code is not exactly 4 digits.
	ErrInvalidEventCode = errors.New("event code must be exactly 4 digits")

	// ErrEventNotFound is returned when no active event matches the code.
	ErrEventNotFound = errors.New("no active event found for this code")

	// ErrAlreadyCheckedIn is the errors.Is target for AlreadyCheckedInError.
	ErrAlreadyCheckedIn = errors.New("already checked in to this event")

	// ErrCheckinClosed is the errors.Is target for CheckinClosedError.
	ErrCheckinClosed = errors.New("event is not currently accepting check-ins")

	// ErrDuplicateEventCode is returned when creating or activating an event
	// whose code is already held by another active event.
	ErrDuplicateEventCode = errors.New("an active event with this code already exists")
)

// AlreadyCheckedInError rejects a duplicate check-in attempt. It carries the
// original registration timestamp so the client can show when the user was
// first admitted.
type AlreadyCheckedInError struct {
	CheckedInAt time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("already checked in to this event at %s", e.CheckedInAt.Format(time.RFC3339))
}

func (e *AlreadyCheckedInError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}

// CheckinClosedError rejects a check-in outside the event's time window.
// ScheduledTime is the event's start date when one is defined.
type CheckinClosedError struct {
	ScheduledTime *time.Time
}

func (e *CheckinClosedError) Error() string {
	if e.ScheduledTime != nil {
		return fmt.Sprintf("event is not currently accepting check-ins, scheduled for %s", e.ScheduledTime.Format(time.RFC3339))
	}
	return "event is not currently accepting check-ins"
}

func (e *CheckinClosedError) Is(target error) bool {
	return target == ErrCheckinClosed
}
