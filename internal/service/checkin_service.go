package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/dto"
	"github.com/eventgate/checkin/internal/repository"
	"github.com/eventgate/checkin/internal/stream"
	"github.com/eventgate/checkin/pkg/logger"
	"github.com/eventgate/checkin/pkg/telemetry"
)

// CheckinService defines the check-in and participant history operations
type CheckinService interface {
	// CheckIn admits a user to the active event matching the code
	CheckIn(ctx context.Context, userID, eventCode string) (*dto.CheckInResponse, error)
	// MyRegistrations retrieves the user's registrations, newest first
	MyRegistrations(ctx context.Context, userID string) ([]*dto.MyRegistrationResponse, error)
}

// AdmissionPublisher publishes successful admissions to the event stream.
// A nil publisher disables streaming.
type AdmissionPublisher interface {
	PublishAdmission(ctx context.Context, admission stream.Admission)
}

// ValidateAdmission decides admissibility from an event snapshot, the prior
// registration when one exists, and the current time. Pure function, no
// side effects.
//
// A duplicate is reported before any window violation: once a user is
// already admitted, "already checked in" is more useful feedback than a
// window error.
func ValidateAdmission(event *domain.Event, prior *domain.Registration, now time.Time) error {
	if prior != nil {
		return &domain.AlreadyCheckedInError{CheckedInAt: prior.RegisteredAt}
	}
	if event.HasWindow() && !event.InWindow(now) {
		return &domain.CheckinClosedError{ScheduledTime: event.StartDate}
	}
	return nil
}

// checkinService implements CheckinService
type checkinService struct {
	eventRepo repository.EventRepository
	regRepo   repository.RegistrationRepository
	publisher AdmissionPublisher
	now       func() time.Time

	admissions *telemetry.Counter
	latency    *telemetry.Histogram
}

// NewCheckinService creates a new CheckinService
func NewCheckinService(
	eventRepo repository.EventRepository,
	regRepo repository.RegistrationRepository,
	publisher AdmissionPublisher,
) CheckinService {
	admissions, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "checkin_admissions_total",
		Description: "Check-in attempts by outcome",
		Unit:        "{attempt}",
	})
	latency, _ := telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "checkin_admission_duration",
		Description: "Check-in processing duration",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5})

	return &checkinService{
		eventRepo:  eventRepo,
		regRepo:    regRepo,
		publisher:  publisher,
		now:        time.Now,
		admissions: admissions,
		latency:    latency,
	}
}

// CheckIn admits a user to the active event matching the code.
//
// The code shape is validated before any repository access. The lookup,
// duplicate check, and pure validation give precise rejection reasons; the
// repository's Admit transaction re-checks everything under a row lock, so
// concurrent attempts for the same user and event admit exactly once.
func (s *checkinService) CheckIn(ctx context.Context, userID, eventCode string) (*dto.CheckInResponse, error) {
	start := s.now()
	outcome := "error"
	defer func() {
		s.recordOutcome(ctx, outcome, s.now().Sub(start))
	}()

	if !dto.ValidEventCode(eventCode) {
		outcome = "invalid_code"
		return nil, domain.ErrInvalidEventCode
	}

	event, err := s.eventRepo.FindActiveByCode(ctx, eventCode)
	if err != nil {
		return nil, fmt.Errorf("find event by code: %w", err)
	}
	if event == nil {
		outcome = "not_found"
		return nil, domain.ErrEventNotFound
	}

	prior, err := s.regRepo.FindByUserAndEvent(ctx, userID, event.ID)
	if err != nil {
		return nil, fmt.Errorf("find prior registration: %w", err)
	}

	if err := ValidateAdmission(event, prior, s.now()); err != nil {
		outcome = rejectOutcome(err)
		return nil, err
	}

	reg, err := s.regRepo.Admit(ctx, userID, event.ID)
	if err != nil {
		// Another request can win the race between validation and the
		// transaction; Admit's own rejection is authoritative.
		outcome = rejectOutcome(err)
		return nil, err
	}

	outcome = "admitted"
	logger.InfoCtx(ctx, "user checked in",
		zap.String("user_id", userID),
		zap.String("event_id", event.ID),
		zap.String("event_code", event.EventCode),
	)

	if s.publisher != nil {
		s.publisher.PublishAdmission(ctx, stream.Admission{
			RegistrationID: reg.ID,
			EventID:        event.ID,
			UserID:         userID,
			CheckedInAt:    reg.RegisteredAt,
		})
	}

	eventDate := ""
	if event.StartDate != nil {
		eventDate = event.StartDate.Format(time.RFC3339)
	}

	return &dto.CheckInResponse{
		Success:       true,
		EventID:       event.ID,
		EventName:     event.Name,
		EventDate:     eventDate,
		EventLocation: event.Location,
		Message:       fmt.Sprintf("Successfully checked in to %s", event.Name),
	}, nil
}

// MyRegistrations retrieves the user's registrations, newest first
func (s *checkinService) MyRegistrations(ctx context.Context, userID string) ([]*dto.MyRegistrationResponse, error) {
	regs, err := s.regRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	out := make([]*dto.MyRegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp := &dto.MyRegistrationResponse{
			ID:            reg.ID,
			EventID:       reg.EventID,
			EventName:     reg.EventName,
			EventLocation: reg.EventLocation,
			RegisteredAt:  reg.RegisteredAt.Format(time.RFC3339),
		}
		if reg.EventDate != nil {
			resp.EventDate = reg.EventDate.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *checkinService) recordOutcome(ctx context.Context, outcome string, elapsed time.Duration) {
	if s.admissions != nil {
		s.admissions.Inc(ctx, telemetry.OutcomeAttr(outcome))
	}
	if s.latency != nil {
		s.latency.Record(ctx, elapsed.Seconds(), telemetry.OutcomeAttr(outcome))
	}
}

func rejectOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		return "duplicate"
	case errors.Is(err, domain.ErrCheckinClosed):
		return "outside_window"
	case errors.Is(err, domain.ErrEventNotFound):
		return "not_found"
	default:
		return "error"
	}
}
