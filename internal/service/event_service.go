package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/dto"
	"github.com/eventgate/checkin/internal/repository"
)

// EventService defines the administrative event lifecycle operations
type EventService interface {
	// Create creates a new event
	Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*dto.EventResponse, error)
	// List retrieves events with pagination and filters
	List(ctx context.Context, filter *dto.EventListFilter) (*dto.EventListResponse, error)
	// Update partially updates an event
	Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	// SetActive activates or deactivates an event
	SetActive(ctx context.Context, id string, active bool) (*dto.EventResponse, error)
	// Registrations retrieves an event's attendance list
	Registrations(ctx context.Context, eventID string, limit, offset int) (*dto.RegistrationListResponse, error)
}

// eventService implements EventService
type eventService struct {
	eventRepo repository.EventRepository
	regRepo   repository.RegistrationRepository
}

// NewEventService creates a new EventService
func NewEventService(eventRepo repository.EventRepository, regRepo repository.RegistrationRepository) EventService {
	return &eventService{
		eventRepo: eventRepo,
		regRepo:   regRepo,
	}
}

// Create creates a new event. Creating an active event whose code another
// active event already holds is rejected, keeping the check-in lookup
// unambiguous.
func (s *eventService) Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	if valid, errMsg := req.Validate(); !valid {
		return nil, errors.New(errMsg)
	}

	if req.IsActive {
		exists, err := s.eventRepo.ActiveCodeExists(ctx, req.EventCode, "")
		if err != nil {
			return nil, fmt.Errorf("check active code: %w", err)
		}
		if exists {
			return nil, domain.ErrDuplicateEventCode
		}
	}

	now := time.Now().UTC()
	event := &domain.Event{
		ID:           uuid.New().String(),
		Name:         req.Name,
		EventCode:    req.EventCode,
		IsActive:     req.IsActive,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Location:     req.Location,
		Participants: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	return toEventResponse(event), nil
}

// GetByID retrieves an event by ID
func (s *eventService) GetByID(ctx context.Context, id string) (*dto.EventResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return toEventResponse(event), nil
}

// List retrieves events with pagination and filters
func (s *eventService) List(ctx context.Context, filter *dto.EventListFilter) (*dto.EventListResponse, error) {
	filter.SetDefaults()

	events, total, err := s.eventRepo.List(ctx, filter.Limit, filter.Offset, filter.Active)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toEventResponse(event))
	}

	return &dto.EventListResponse{
		Events: responses,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Update partially updates an event
func (s *eventService) Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	if valid, errMsg := req.Validate(); !valid {
		return nil, errors.New(errMsg)
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.StartDate != nil {
		event.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		event.EndDate = req.EndDate
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	return toEventResponse(event), nil
}

// SetActive activates or deactivates an event. Activation enforces the
// active-code uniqueness invariant before flipping the flag; the partial
// unique index backstops the check.
func (s *eventService) SetActive(ctx context.Context, id string, active bool) (*dto.EventResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	if active && !event.IsActive {
		exists, err := s.eventRepo.ActiveCodeExists(ctx, event.EventCode, event.ID)
		if err != nil {
			return nil, fmt.Errorf("check active code: %w", err)
		}
		if exists {
			return nil, domain.ErrDuplicateEventCode
		}
	}

	if err := s.eventRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	event.IsActive = active
	return toEventResponse(event), nil
}

// Registrations retrieves an event's attendance list
func (s *eventService) Registrations(ctx context.Context, eventID string, limit, offset int) (*dto.RegistrationListResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	regs, total, err := s.regRepo.ListByEvent(ctx, eventID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		responses = append(responses, &dto.RegistrationResponse{
			ID:           reg.ID,
			UserID:       reg.UserID,
			EventID:      reg.EventID,
			RegisteredAt: reg.RegisteredAt.Format(time.RFC3339),
		})
	}

	return &dto.RegistrationListResponse{
		Registrations: responses,
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

// toEventResponse converts domain.Event to dto.EventResponse
func toEventResponse(event *domain.Event) *dto.EventResponse {
	resp := &dto.EventResponse{
		ID:                  event.ID,
		Name:                event.Name,
		EventCode:           event.EventCode,
		IsActive:            event.IsActive,
		Location:            event.Location,
		CurrentParticipants: event.CurrentParticipants,
		CreatedAt:           event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           event.UpdatedAt.Format(time.RFC3339),
	}
	if event.StartDate != nil {
		resp.StartDate = event.StartDate.Format(time.RFC3339)
	}
	if event.EndDate != nil {
		resp.EndDate = event.EndDate.Format(time.RFC3339)
	}
	return resp
}
