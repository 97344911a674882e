package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/middleware"
	"github.com/noah-isme/attendx-api/internal/models"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
	"github.com/noah-isme/attendx-api/pkg/response"
)

type liveSessionService interface {
	Start(ctx context.Context, actor models.Actor, req dto.StartSessionRequest) (*models.LiveSession, error)
	Get(ctx context.Context, actor models.Actor, sessionID string) (*dto.SessionDetail, error)
	List(ctx context.Context, actor models.Actor, classroomID string) ([]models.SessionListItem, error)
	OpenPortal(ctx context.Context, actor models.Actor, sessionID string, duration *int) (*models.LiveSession, error)
	ClosePortal(ctx context.Context, actor models.Actor, sessionID string) (*models.LiveSession, error)
	Admit(ctx context.Context, actor models.Actor, sessionID, target string) (*dto.AdmitResult, error)
	Join(ctx context.Context, actor models.Actor, sessionID string) (*models.Attendee, error)
	CallAttendance(ctx context.Context, actor models.Actor, sessionID string) (*dto.CallAttendanceResult, error)
	End(ctx context.Context, actor models.Actor, sessionID string) (*dto.EndSessionResult, error)
	Cancel(ctx context.Context, actor models.Actor, sessionID string) (*models.LiveSession, error)
}

// LiveSessionHandler exposes the live session lifecycle.
type LiveSessionHandler struct {
	service liveSessionService
}

// NewLiveSessionHandler builds a new handler.
func NewLiveSessionHandler(service liveSessionService) *LiveSessionHandler {
	return &LiveSessionHandler{service: service}
}

// Start godoc
// @Summary Start a live session
// @Description Ends any LIVE session of the classroom and starts a new one with the portal closed.
// @Tags Live Sessions
// @Accept json
// @Produce json
// @Param payload body dto.StartSessionRequest true "Start payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live [post]
func (h *LiveSessionHandler) Start(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.StartSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.service.Start(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// List godoc
// @Summary List live sessions
// @Tags Live Sessions
// @Produce json
// @Param classroomId query string false "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /live [get]
func (h *LiveSessionHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor, c.Query("classroomId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a live session with attendees
// @Tags Live Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live/{id} [get]
func (h *LiveSessionHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Act godoc
// @Summary Apply an action to a live session
// @Description action is one of end, cancel, open-portal, close-portal, join, admit, call-attendance.
// @Tags Live Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SessionActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /live/{id} [patch]
func (h *LiveSessionHandler) Act(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SessionActionRequest
	if !bindJSON(c, &req, "invalid action payload") {
		return
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	middleware.SetAuditDetail(c, action)

	ctx := c.Request.Context()
	id := c.Param("id")

	var (
		result interface{}
		err    error
	)
	switch action {
	case dto.ActionEnd:
		result, err = h.service.End(ctx, actor, id)
	case dto.ActionCancel:
		result, err = h.service.Cancel(ctx, actor, id)
	case dto.ActionOpenPortal:
		result, err = h.service.OpenPortal(ctx, actor, id, req.PortalDuration)
	case dto.ActionClosePortal:
		result, err = h.service.ClosePortal(ctx, actor, id)
	case dto.ActionJoin:
		result, err = h.service.Join(ctx, actor, id)
	case dto.ActionAdmit:
		result, err = h.service.Admit(ctx, actor, id, req.StudentID)
	case dto.ActionCallAttendance:
		result, err = h.service.CallAttendance(ctx, actor, id)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown action "+req.Action))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
