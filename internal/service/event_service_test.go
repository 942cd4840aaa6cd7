package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/dto"
)

func newEventService() (EventService, *spyEventRepo, *spyRegistrationRepo) {
	eventRepo := newSpyEventRepo()
	regRepo := newSpyRegistrationRepo(eventRepo)
	return NewEventService(eventRepo, regRepo), eventRepo, regRepo
}

func TestEventServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates event", func(t *testing.T) {
		svc, repo, _ := newEventService()
		start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

		resp, err := svc.Create(ctx, &dto.CreateEventRequest{
			Name:      "Autumn Fair",
			EventCode: "0042",
			Location:  "East Wing",
			StartDate: &start,
			IsActive:  true,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "0042", resp.EventCode)
		assert.True(t, resp.IsActive)
		assert.Equal(t, start.Format(time.RFC3339), resp.StartDate)
		assert.Len(t, repo.events, 1)
	})

	t.Run("rejects malformed code", func(t *testing.T) {
		svc, _, _ := newEventService()
		_, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "Fair", EventCode: "42"})
		require.Error(t, err)
	})

	t.Run("rejects duplicate active code", func(t *testing.T) {
		svc, _, _ := newEventService()
		_, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "First", EventCode: "1234", IsActive: true})
		require.NoError(t, err)

		_, err = svc.Create(ctx, &dto.CreateEventRequest{Name: "Second", EventCode: "1234", IsActive: true})
		require.ErrorIs(t, err, domain.ErrDuplicateEventCode)
	})

	t.Run("allows duplicate code when inactive", func(t *testing.T) {
		svc, _, _ := newEventService()
		_, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "First", EventCode: "1234", IsActive: true})
		require.NoError(t, err)

		_, err = svc.Create(ctx, &dto.CreateEventRequest{Name: "Second", EventCode: "1234", IsActive: false})
		require.NoError(t, err)
	})
}

func TestEventServiceSetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("activation enforces code uniqueness", func(t *testing.T) {
		svc, _, _ := newEventService()
		_, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "First", EventCode: "1234", IsActive: true})
		require.NoError(t, err)
		second, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "Second", EventCode: "1234", IsActive: false})
		require.NoError(t, err)

		_, err = svc.SetActive(ctx, second.ID, true)
		require.ErrorIs(t, err, domain.ErrDuplicateEventCode)
	})

	t.Run("deactivate then activate the other", func(t *testing.T) {
		svc, _, _ := newEventService()
		first, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "First", EventCode: "1234", IsActive: true})
		require.NoError(t, err)
		second, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "Second", EventCode: "1234", IsActive: false})
		require.NoError(t, err)

		_, err = svc.SetActive(ctx, first.ID, false)
		require.NoError(t, err)

		resp, err := svc.SetActive(ctx, second.ID, true)
		require.NoError(t, err)
		assert.True(t, resp.IsActive)
	})

	t.Run("unknown id", func(t *testing.T) {
		svc, _, _ := newEventService()
		_, err := svc.SetActive(ctx, "missing", true)
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})
}

func TestEventServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newEventService()

	created, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "Original", EventCode: "1234"})
	require.NoError(t, err)

	name := "Renamed"
	location := "West Wing"
	resp, err := svc.Update(ctx, created.ID, &dto.UpdateEventRequest{Name: &name, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)
	assert.Equal(t, "West Wing", resp.Location)
	assert.Equal(t, "1234", resp.EventCode, "code is immutable through update")

	t.Run("empty update rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, &dto.UpdateEventRequest{})
		require.Error(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", &dto.UpdateEventRequest{Name: &name})
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	})
}

func TestEventServiceList(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newEventService()

	_, err := svc.Create(ctx, &dto.CreateEventRequest{Name: "Active", EventCode: "1111", IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &dto.CreateEventRequest{Name: "Draft", EventCode: "2222"})
	require.NoError(t, err)

	all, err := svc.List(ctx, &dto.EventListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 20, all.Limit, "defaults applied")

	active := true
	filtered, err := svc.List(ctx, &dto.EventListFilter{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)
	assert.Equal(t, "Active", filtered.Events[0].Name)
}

func TestEventServiceRegistrations(t *testing.T) {
	ctx := context.Background()
	eventRepo := newSpyEventRepo()
	regRepo := newSpyRegistrationRepo(eventRepo)
	eventSvc := NewEventService(eventRepo, regRepo)
	checkinSvc := NewCheckinService(eventRepo, regRepo, nil)

	created, err := eventSvc.Create(ctx, &dto.CreateEventRequest{Name: "Fair", EventCode: "1234", IsActive: true})
	require.NoError(t, err)

	_, err = checkinSvc.CheckIn(ctx, "user-1", "1234")
	require.NoError(t, err)
	_, err = checkinSvc.CheckIn(ctx, "user-2", "1234")
	require.NoError(t, err)

	resp, err := eventSvc.Registrations(ctx, created.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 20, resp.Limit)

	_, err = eventSvc.Registrations(ctx, "missing", 10, 0)
	require.ErrorIs(t, err, domain.ErrEventNotFound)
}
