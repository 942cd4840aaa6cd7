package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/dto"
	"github.com/eventgate/checkin/internal/service"
	"github.com/eventgate/checkin/pkg/logger"
	"github.com/eventgate/checkin/pkg/response"
)

// EventHandler handles administrative event management HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles event creation
// POST /api/v1/admin/events
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error("INVALID_EVENT", msg))
		return
	}

	result, err := h.eventService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEventCode) {
			c.JSON(http.StatusConflict, response.Error("EVENT_CODE_ACTIVE", "An active event with this code already exists"))
			return
		}
		h.internalError(c, "create event", err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(result))
}

// GetByID handles retrieving an event by ID
// GET /api/v1/admin/events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Event ID is required"))
		return
	}

	result, err := h.eventService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		h.internalError(c, "get event", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// List handles retrieving events with pagination
// GET /api/v1/admin/events
func (h *EventHandler) List(c *gin.Context) {
	var filter dto.EventListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	result, err := h.eventService.List(c.Request.Context(), &filter)
	if err != nil {
		h.internalError(c, "list events", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Update handles partial event update
// PATCH /api/v1/admin/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Event ID is required"))
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error("INVALID_UPDATE", msg))
		return
	}

	result, err := h.eventService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		h.internalError(c, "update event", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Activate handles event activation
// POST /api/v1/admin/events/:id/activate
func (h *EventHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate handles event deactivation
// POST /api/v1/admin/events/:id/deactivate
func (h *EventHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *EventHandler) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Event ID is required"))
		return
	}

	result, err := h.eventService.SetActive(c.Request.Context(), id, active)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
		case errors.Is(err, domain.ErrDuplicateEventCode):
			c.JSON(http.StatusConflict, response.Error("EVENT_CODE_ACTIVE", "Another active event already uses this code"))
		default:
			h.internalError(c, "set event active", err)
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Registrations handles retrieving an event's attendance list
// GET /api/v1/admin/events/:id/registrations
func (h *EventHandler) Registrations(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Event ID is required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.eventService.Registrations(c.Request.Context(), id, limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
			return
		}
		h.internalError(c, "list event registrations", err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

func (h *EventHandler) internalError(c *gin.Context, op string, err error) {
	logger.ErrorCtx(c.Request.Context(), op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, response.InternalError(""))
}
