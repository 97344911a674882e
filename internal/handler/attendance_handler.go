package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/middleware"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/pkg/response"
)

type attendanceService interface {
	Report(ctx context.Context, actor models.Actor) (*dto.AttendanceReport, bool, error)
}

// AttendanceHandler serves attendance history.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Report godoc
// @Summary Attendance history for the current user
// @Description Educators receive session history with stats; students receive per-subject summaries.
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	report, hit, err := h.service.Report(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, nil)
}
