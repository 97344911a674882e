package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/pkg/response"
)

type timetableService interface {
	List(ctx context.Context, actor models.Actor) ([]models.Timetable, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateTimetableRequest) (*models.Timetable, error)
	AddSlot(ctx context.Context, actor models.Actor, timetableID string, req dto.SlotRequest) (*models.TimetableSlot, error)
	DeleteSlot(ctx context.Context, actor models.Actor, timetableID, slotID string) error
}

// TimetableHandler exposes personal timetables.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler builds a new handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// List godoc
// @Summary List own timetables
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create a timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTimetableRequest
	if !bindJSON(c, &req, "invalid timetable payload") {
		return
	}
	timetable, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, timetable)
}

// AddSlot godoc
// @Summary Add a slot to a timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.SlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/slots [post]
func (h *TimetableHandler) AddSlot(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	slot, err := h.service.AddSlot(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// DeleteSlot godoc
// @Summary Remove a slot
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Param slotId path string true "Slot ID"
// @Success 204
// @Router /timetables/{id}/slots/{slotId} [delete]
func (h *TimetableHandler) DeleteSlot(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteSlot(c.Request.Context(), actor, c.Param("id"), c.Param("slotId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
