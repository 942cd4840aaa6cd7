package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/stream"
)

// spyEventRepo is an in-memory EventRepository that counts calls.
type spyEventRepo struct {
	events map[string]*domain.Event
	calls  int
}

func newSpyEventRepo(events ...*domain.Event) *spyEventRepo {
	r := &spyEventRepo{events: make(map[string]*domain.Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *spyEventRepo) Create(ctx context.Context, event *domain.Event) error {
	r.calls++
	if event.IsActive {
		for _, e := range r.events {
			if e.IsActive && e.EventCode == event.EventCode {
				return domain.ErrDuplicateEventCode
			}
		}
	}
	r.events[event.ID] = event
	return nil
}

func (r *spyEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.calls++
	return r.events[id], nil
}

func (r *spyEventRepo) FindActiveByCode(ctx context.Context, code string) (*domain.Event, error) {
	r.calls++
	for _, e := range r.events {
		if e.IsActive && e.EventCode == code {
			return e, nil
		}
	}
	return nil, nil
}

func (r *spyEventRepo) List(ctx context.Context, limit, offset int, isActive *bool) ([]*domain.Event, int, error) {
	r.calls++
	out := make([]*domain.Event, 0)
	for _, e := range r.events {
		if isActive == nil || e.IsActive == *isActive {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (r *spyEventRepo) Update(ctx context.Context, event *domain.Event) error {
	r.calls++
	if _, ok := r.events[event.ID]; !ok {
		return domain.ErrEventNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *spyEventRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.calls++
	e, ok := r.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	e.IsActive = active
	return nil
}

func (r *spyEventRepo) ActiveCodeExists(ctx context.Context, code string, excludeID string) (bool, error) {
	r.calls++
	for _, e := range r.events {
		if e.IsActive && e.EventCode == code && e.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// spyRegistrationRepo mirrors the transactional Admit semantics in memory.
type spyRegistrationRepo struct {
	events *spyEventRepo
	regs   map[string]*domain.Registration // keyed user|event
	calls  int
}

func newSpyRegistrationRepo(events *spyEventRepo) *spyRegistrationRepo {
	return &spyRegistrationRepo{
		events: events,
		regs:   make(map[string]*domain.Registration),
	}
}

func regKey(userID, eventID string) string { return userID + "|" + eventID }

func (r *spyRegistrationRepo) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	r.calls++
	return r.regs[regKey(userID, eventID)], nil
}

func (r *spyRegistrationRepo) Admit(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	r.calls++
	event, ok := r.events.events[eventID]
	if !ok || !event.IsActive {
		return nil, domain.ErrEventNotFound
	}
	now := time.Now().UTC()
	if event.HasWindow() && !event.InWindow(now) {
		return nil, &domain.CheckinClosedError{ScheduledTime: event.StartDate}
	}
	if prior, ok := r.regs[regKey(userID, eventID)]; ok {
		return nil, &domain.AlreadyCheckedInError{CheckedInAt: prior.RegisteredAt}
	}

	event.Participants = append(event.Participants, userID)
	event.CurrentParticipants++
	event.UpdatedAt = now

	reg := &domain.Registration{
		ID:           uuid.New().String(),
		UserID:       userID,
		EventID:      eventID,
		RegisteredAt: now,
		CreatedAt:    now,
	}
	r.regs[regKey(userID, eventID)] = reg
	return reg, nil
}

func (r *spyRegistrationRepo) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error) {
	r.calls++
	out := make([]*domain.Registration, 0)
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			out = append(out, reg)
		}
	}
	return out, len(out), nil
}

func (r *spyRegistrationRepo) ListByUser(ctx context.Context, userID string) ([]*domain.UserRegistration, error) {
	r.calls++
	out := make([]*domain.UserRegistration, 0)
	for _, reg := range r.regs {
		if reg.UserID == userID {
			event := r.events.events[reg.EventID]
			out = append(out, &domain.UserRegistration{
				Registration:  *reg,
				EventName:     event.Name,
				EventLocation: event.Location,
				EventDate:     event.StartDate,
			})
		}
	}
	return out, nil
}

// capturingPublisher records published admissions.
type capturingPublisher struct {
	admissions []stream.Admission
}

func (p *capturingPublisher) PublishAdmission(ctx context.Context, a stream.Admission) {
	p.admissions = append(p.admissions, a)
}

func activeEvent(code string) *domain.Event {
	now := time.Now().UTC()
	return &domain.Event{
		ID:           uuid.New().String(),
		Name:         "Community Night",
		EventCode:    code,
		IsActive:     true,
		Location:     "Main Hall",
		Participants: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCheckIn_MalformedCodeSkipsStore(t *testing.T) {
	ctx := context.Background()

	for _, code := range []string{"99", "12345", "12a4", "", "  12"} {
		t.Run(code, func(t *testing.T) {
			eventRepo := newSpyEventRepo()
			regRepo := newSpyRegistrationRepo(eventRepo)
			svc := NewCheckinService(eventRepo, regRepo, nil)

			_, err := svc.CheckIn(ctx, "user-1", code)

			require.ErrorIs(t, err, domain.ErrInvalidEventCode)
			assert.Zero(t, eventRepo.calls, "malformed code must not reach the event store")
			assert.Zero(t, regRepo.calls, "malformed code must not reach the registration store")
		})
	}
}

func TestCheckIn_NoMatchingActiveEvent(t *testing.T) {
	ctx := context.Background()
	inactive := activeEvent("5678")
	inactive.IsActive = false
	eventRepo := newSpyEventRepo(inactive)
	regRepo := newSpyRegistrationRepo(eventRepo)
	svc := NewCheckinService(eventRepo, regRepo, nil)

	_, err := svc.CheckIn(ctx, "user-1", "5678")

	require.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestCheckIn_Admitted(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	eventRepo := newSpyEventRepo(event)
	regRepo := newSpyRegistrationRepo(eventRepo)
	publisher := &capturingPublisher{}
	svc := NewCheckinService(eventRepo, regRepo, publisher)

	resp, err := svc.CheckIn(ctx, "user-1", "1234")

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, event.ID, resp.EventID)
	assert.Equal(t, "Community Night", resp.EventName)
	assert.Equal(t, "Main Hall", resp.EventLocation)
	assert.Empty(t, resp.EventDate, "unbounded event has no event date")
	assert.Contains(t, resp.Message, "Community Night")

	assert.Equal(t, 1, event.CurrentParticipants, "participant count increases by exactly 1")
	assert.Equal(t, []string{"user-1"}, event.Participants)
	require.Len(t, regRepo.regs, 1, "exactly one registration recorded")

	require.Len(t, publisher.admissions, 1)
	assert.Equal(t, event.ID, publisher.admissions[0].EventID)
	assert.Equal(t, "user-1", publisher.admissions[0].UserID)
}

func TestCheckIn_DuplicateReportsOriginalTimestamp(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	eventRepo := newSpyEventRepo(event)
	regRepo := newSpyRegistrationRepo(eventRepo)
	svc := NewCheckinService(eventRepo, regRepo, nil)

	checkedInAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	regRepo.regs[regKey("user-1", event.ID)] = &domain.Registration{
		ID:           uuid.New().String(),
		UserID:       "user-1",
		EventID:      event.ID,
		RegisteredAt: checkedInAt,
		CreatedAt:    checkedInAt,
	}

	_, err := svc.CheckIn(ctx, "user-1", "1234")

	require.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)
	var ace *domain.AlreadyCheckedInError
	require.ErrorAs(t, err, &ace)
	assert.True(t, ace.CheckedInAt.Equal(checkedInAt), "conflict carries the original timestamp")

	assert.Equal(t, 0, event.CurrentParticipants, "rejection must not mutate the event")
	assert.Len(t, regRepo.regs, 1, "rejection must not add a registration")
}

func TestCheckIn_RejectionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	eventRepo := newSpyEventRepo(event)
	regRepo := newSpyRegistrationRepo(eventRepo)
	svc := NewCheckinService(eventRepo, regRepo, nil)

	resp, err := svc.CheckIn(ctx, "user-1", "1234")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	first := regRepo.regs[regKey("user-1", event.ID)].RegisteredAt

	_, err = svc.CheckIn(ctx, "user-1", "1234")
	require.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)
	var ace *domain.AlreadyCheckedInError
	require.ErrorAs(t, err, &ace)
	assert.True(t, ace.CheckedInAt.Equal(first), "second attempt reports the first attempt's timestamp")

	assert.Equal(t, 1, event.CurrentParticipants, "count unchanged by the rejected retry")
}

// racingRegistrationRepo hides the prior row from the duplicate pre-check,
// so Admit is the first to see it — the shape of a concurrent attempt
// committing between the two calls.
type racingRegistrationRepo struct {
	*spyRegistrationRepo
}

func (r *racingRegistrationRepo) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	r.calls++
	return nil, nil
}

func TestCheckIn_RaceLoserReportsWinnersTimestamp(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	eventRepo := newSpyEventRepo(event)
	regRepo := &racingRegistrationRepo{newSpyRegistrationRepo(eventRepo)}
	svc := NewCheckinService(eventRepo, regRepo, nil)

	winnerAt := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)
	regRepo.regs[regKey("user-1", event.ID)] = &domain.Registration{
		ID:           uuid.New().String(),
		UserID:       "user-1",
		EventID:      event.ID,
		RegisteredAt: winnerAt,
		CreatedAt:    winnerAt,
	}

	_, err := svc.CheckIn(ctx, "user-1", "1234")

	require.ErrorIs(t, err, domain.ErrAlreadyCheckedIn)
	var ace *domain.AlreadyCheckedInError
	require.ErrorAs(t, err, &ace)
	assert.True(t, ace.CheckedInAt.Equal(winnerAt),
		"losing attempt reports the committed registration's timestamp, not its own clock")
	assert.Equal(t, 0, event.CurrentParticipants, "losing attempt must not mutate the event")
}

func TestCheckIn_OutsideWindow(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	start := time.Now().UTC().Add(time.Hour)
	event.StartDate = &start
	eventRepo := newSpyEventRepo(event)
	regRepo := newSpyRegistrationRepo(eventRepo)
	svc := NewCheckinService(eventRepo, regRepo, nil)

	_, err := svc.CheckIn(ctx, "user-1", "1234")

	require.ErrorIs(t, err, domain.ErrCheckinClosed)
	var cce *domain.CheckinClosedError
	require.ErrorAs(t, err, &cce)
	require.NotNil(t, cce.ScheduledTime)
	assert.True(t, cce.ScheduledTime.Equal(start), "scheduledTime equals the event start date")

	assert.Equal(t, 0, event.CurrentParticipants)
	assert.Empty(t, regRepo.regs)
}

func TestCheckIn_DuplicateBeatsWindow(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	start := time.Now().UTC().Add(time.Hour)
	event.StartDate = &start
	eventRepo := newSpyEventRepo(event)
	regRepo := newSpyRegistrationRepo(eventRepo)
	svc := NewCheckinService(eventRepo, regRepo, nil)

	checkedInAt := time.Now().UTC().Add(-24 * time.Hour)
	regRepo.regs[regKey("user-1", event.ID)] = &domain.Registration{
		ID:           uuid.New().String(),
		UserID:       "user-1",
		EventID:      event.ID,
		RegisteredAt: checkedInAt,
	}

	_, err := svc.CheckIn(ctx, "user-1", "1234")

	require.ErrorIs(t, err, domain.ErrAlreadyCheckedIn,
		"a registered user outside the window hears about the duplicate, not the window")
	assert.NotErrorIs(t, err, domain.ErrCheckinClosed)
}

func TestCheckIn_WindowBounds(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tests := []struct {
		name     string
		start    *time.Time
		end      *time.Time
		admitted bool
	}{
		{"no window", nil, nil, true},
		{"inside window", timePtr(now.Add(-time.Hour)), timePtr(now.Add(time.Hour)), true},
		{"ended", nil, timePtr(now.Add(-time.Hour)), false},
		{"only start, passed", timePtr(now.Add(-time.Hour)), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := activeEvent("1234")
			event.StartDate = tt.start
			event.EndDate = tt.end
			eventRepo := newSpyEventRepo(event)
			regRepo := newSpyRegistrationRepo(eventRepo)
			svc := NewCheckinService(eventRepo, regRepo, nil)

			resp, err := svc.CheckIn(ctx, "user-1", "1234")
			if tt.admitted {
				require.NoError(t, err)
				assert.True(t, resp.Success)
			} else {
				require.ErrorIs(t, err, domain.ErrCheckinClosed)
			}
		})
	}
}

func TestValidateAdmission(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(time.Hour)

	t.Run("valid", func(t *testing.T) {
		event := activeEvent("1234")
		require.NoError(t, ValidateAdmission(event, nil, now))
	})

	t.Run("duplicate first even outside window", func(t *testing.T) {
		event := activeEvent("1234")
		event.StartDate = &start
		prior := &domain.Registration{RegisteredAt: now.Add(-time.Hour)}
		err := ValidateAdmission(event, prior, now)
		assert.True(t, errors.Is(err, domain.ErrAlreadyCheckedIn))
	})

	t.Run("window violation carries start", func(t *testing.T) {
		event := activeEvent("1234")
		event.StartDate = &start
		err := ValidateAdmission(event, nil, now)
		var cce *domain.CheckinClosedError
		require.ErrorAs(t, err, &cce)
		assert.Equal(t, &start, cce.ScheduledTime)
	})
}

func TestMyRegistrations(t *testing.T) {
	ctx := context.Background()
	event := activeEvent("1234")
	start := time.Now().UTC().Add(time.Hour)
	event.StartDate = &start
	eventRepo := newSpyEventRepo(event)
	regRepo := newSpyRegistrationRepo(eventRepo)
	svc := NewCheckinService(eventRepo, regRepo, nil)

	_, err := svc.CheckIn(ctx, "user-9", "1234")
	require.Error(t, err) // before the window opens

	event.StartDate = timePtr(time.Now().UTC().Add(-time.Hour))
	_, err = svc.CheckIn(ctx, "user-9", "1234")
	require.NoError(t, err)

	regs, err := svc.MyRegistrations(ctx, "user-9")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, event.ID, regs[0].EventID)
	assert.Equal(t, "Community Night", regs[0].EventName)
	assert.Equal(t, "Main Hall", regs[0].EventLocation)
}

func timePtr(t time.Time) *time.Time { return &t }
