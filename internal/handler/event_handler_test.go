package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/dto"
)

// stubEventService returns canned results for handler tests.
type stubEventService struct {
	event *dto.EventResponse
	list  *dto.EventListResponse
	regs  *dto.RegistrationListResponse
	err   error
}

func (s *stubEventService) Create(ctx context.Context, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	return s.event, s.err
}

func (s *stubEventService) GetByID(ctx context.Context, id string) (*dto.EventResponse, error) {
	return s.event, s.err
}

func (s *stubEventService) List(ctx context.Context, filter *dto.EventListFilter) (*dto.EventListResponse, error) {
	return s.list, s.err
}

func (s *stubEventService) Update(ctx context.Context, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	return s.event, s.err
}

func (s *stubEventService) SetActive(ctx context.Context, id string, active bool) (*dto.EventResponse, error) {
	return s.event, s.err
}

func (s *stubEventService) Registrations(ctx context.Context, eventID string, limit, offset int) (*dto.RegistrationListResponse, error) {
	return s.regs, s.err
}

func eventRouter(svc *stubEventService) *gin.Engine {
	router := gin.New()
	h := NewEventHandler(svc)
	admin := router.Group("/api/v1/admin")
	{
		admin.POST("/events", h.Create)
		admin.GET("/events", h.List)
		admin.GET("/events/:id", h.GetByID)
		admin.PATCH("/events/:id", h.Update)
		admin.POST("/events/:id/activate", h.Activate)
		admin.POST("/events/:id/deactivate", h.Deactivate)
		admin.GET("/events/:id/registrations", h.Registrations)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestEventHandlerCreate(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &stubEventService{event: &dto.EventResponse{ID: "event-1", Name: "Fair", EventCode: "1234"}}
		router := eventRouter(svc)

		w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/events",
			`{"name":"Fair","event_code":"1234","is_active":true}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, true, body["success"])
	})

	t.Run("malformed code rejected before service", func(t *testing.T) {
		svc := &stubEventService{}
		router := eventRouter(svc)

		w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/events",
			`{"name":"Fair","event_code":"99"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("duplicate active code", func(t *testing.T) {
		svc := &stubEventService{err: domain.ErrDuplicateEventCode}
		router := eventRouter(svc)

		w, body := doJSON(t, router, http.MethodPost, "/api/v1/admin/events",
			`{"name":"Fair","event_code":"1234","is_active":true}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		errInfo := body["error"].(map[string]interface{})
		assert.Equal(t, "EVENT_CODE_ACTIVE", errInfo["code"])
	})
}

func TestEventHandlerGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &stubEventService{event: &dto.EventResponse{ID: "event-1", Name: "Fair"}}
		router := eventRouter(svc)

		w, body := doJSON(t, router, http.MethodGet, "/api/v1/admin/events/event-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubEventService{err: domain.ErrEventNotFound}
		router := eventRouter(svc)

		w, _ := doJSON(t, router, http.MethodGet, "/api/v1/admin/events/missing", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEventHandlerUpdate(t *testing.T) {
	t.Run("empty update rejected", func(t *testing.T) {
		svc := &stubEventService{}
		router := eventRouter(svc)

		w, _ := doJSON(t, router, http.MethodPatch, "/api/v1/admin/events/event-1", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("updated", func(t *testing.T) {
		svc := &stubEventService{event: &dto.EventResponse{ID: "event-1", Name: "Renamed"}}
		router := eventRouter(svc)

		w, body := doJSON(t, router, http.MethodPatch, "/api/v1/admin/events/event-1", `{"name":"Renamed"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
	})
}

func TestEventHandlerActivate(t *testing.T) {
	t.Run("conflict on duplicate code", func(t *testing.T) {
		svc := &stubEventService{err: domain.ErrDuplicateEventCode}
		router := eventRouter(svc)

		w, _ := doJSON(t, router, http.MethodPost, "/api/v1/admin/events/event-1/activate", "")

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("deactivated", func(t *testing.T) {
		svc := &stubEventService{event: &dto.EventResponse{ID: "event-1", IsActive: false}}
		router := eventRouter(svc)

		w, _ := doJSON(t, router, http.MethodPost, "/api/v1/admin/events/event-1/deactivate", "")

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestEventHandlerRegistrations(t *testing.T) {
	svc := &stubEventService{regs: &dto.RegistrationListResponse{
		Registrations: []*dto.RegistrationResponse{{ID: "reg-1", UserID: "user-1", EventID: "event-1"}},
		Total:         1,
		Limit:         20,
	}}
	router := eventRouter(svc)

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/admin/events/event-1/registrations", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
}
