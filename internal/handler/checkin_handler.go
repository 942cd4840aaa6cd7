package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/eventgate/checkin/internal/domain"
	"github.com/eventgate/checkin/internal/dto"
	"github.com/eventgate/checkin/internal/service"
	"github.com/eventgate/checkin/pkg/logger"
	"github.com/eventgate/checkin/pkg/middleware"
	"github.com/eventgate/checkin/pkg/response"
	"github.com/eventgate/checkin/pkg/telemetry"
)

// CheckinHandler handles the check-in and participant history endpoints
type CheckinHandler struct {
	checkinService service.CheckinService
}

// NewCheckinHandler creates a new CheckinHandler
func NewCheckinHandler(checkinService service.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkinService: checkinService}
}

// CheckIn handles POST /api/v1/checkin
//
// The endpoint speaks the flat {success, ...} wire shape, not the shared
// envelope: its response format is a contract with deployed clients.
func (h *CheckinHandler) CheckIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkin")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.CheckInFailure{
			Error: "Authentication required",
		})
		return
	}

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		c.JSON(http.StatusBadRequest, dto.CheckInFailure{
			Error: "Event code is required",
		})
		return
	}

	span.SetAttributes(
		telemetry.UserIDAttr(userID),
		telemetry.EventCodeAttr(req.EventCode),
	)

	result, err := h.checkinService.CheckIn(ctx, userID, req.EventCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.rejectCheckIn(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// rejectCheckIn maps service errors onto the flat failure shape and its
// status contract: 400 malformed code, 403 outside window (with
// scheduledTime when known), 404 no active event, 409 duplicate (with
// checkedInAt), 500 otherwise.
func (h *CheckinHandler) rejectCheckIn(c *gin.Context, err error) {
	var ace *domain.AlreadyCheckedInError
	var cce *domain.CheckinClosedError

	switch {
	case errors.Is(err, domain.ErrInvalidEventCode):
		c.JSON(http.StatusBadRequest, dto.CheckInFailure{
			Error: "Event code must be exactly 4 digits",
		})
	case errors.As(err, &ace):
		c.JSON(http.StatusConflict, dto.CheckInFailure{
			Error:       "You have already checked in to this event",
			CheckedInAt: ace.CheckedInAt.Format(time.RFC3339),
		})
	case errors.As(err, &cce):
		failure := dto.CheckInFailure{
			Error: "This event is not currently accepting check-ins",
		}
		if cce.ScheduledTime != nil {
			failure.ScheduledTime = cce.ScheduledTime.Format(time.RFC3339)
		}
		c.JSON(http.StatusForbidden, failure)
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.CheckInFailure{
			Error: "No active event found for this code",
		})
	default:
		// Store detail goes to the log, never to the wire.
		logger.ErrorCtx(c.Request.Context(), "check-in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.CheckInFailure{
			Error: "Something went wrong, please try again",
		})
	}
}

// MyRegistrations handles GET /api/v1/me/registrations
func (h *CheckinHandler) MyRegistrations(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkin.history")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, response.Unauthorized(""))
		return
	}

	span.SetAttributes(telemetry.UserIDAttr(userID))

	regs, err := h.checkinService.MyRegistrations(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorCtx(ctx, "list own registrations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(regs))
}
