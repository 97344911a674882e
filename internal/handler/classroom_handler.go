package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/pkg/response"
)

type classroomService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateClassroomRequest) (*models.Classroom, error)
	ListForActor(ctx context.Context, actor models.Actor) (*dto.ClassroomList, error)
	Get(ctx context.Context, id string) (*dto.ClassroomDetail, error)
	Search(ctx context.Context, term string) ([]models.Classroom, error)
	RequestJoin(ctx context.Context, actor models.Actor, classroomID string) (*models.Enrollment, error)
	ReviewEnrollment(ctx context.Context, actor models.Actor, classroomID string, req dto.ReviewEnrollmentRequest) (*models.Enrollment, error)
}

// ClassroomHandler exposes classroom and enrollment endpoints.
type ClassroomHandler struct {
	service classroomService
}

// NewClassroomHandler builds a new handler.
func NewClassroomHandler(service classroomService) *ClassroomHandler {
	return &ClassroomHandler{service: service}
}

// List godoc
// @Summary List classrooms for the current user
// @Description Educators receive owned classrooms with approved students; students receive their enrollments.
// @Tags Classrooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	list, err := h.service.ListForActor(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Create godoc
// @Summary Create a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateClassroomRequest
	if !bindJSON(c, &req, "invalid classroom payload") {
		return
	}
	classroom, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// Search godoc
// @Summary Search classrooms by code, name or subject
// @Tags Classrooms
// @Produce json
// @Param q query string true "Search term (at least 2 characters)"
// @Success 200 {object} response.Envelope
// @Router /classrooms/search [get]
func (h *ClassroomHandler) Search(c *gin.Context) {
	items, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Classroom detail with enrollments
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Join godoc
// @Summary Request to join a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classrooms/{id}/join [post]
func (h *ClassroomHandler) Join(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	enrollment, err := h.service.RequestJoin(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Review godoc
// @Summary Approve or reject a pending enrollment
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body dto.ReviewEnrollmentRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classrooms/{id}/students [patch]
func (h *ClassroomHandler) Review(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviewEnrollmentRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	enrollment, err := h.service.ReviewEnrollment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
