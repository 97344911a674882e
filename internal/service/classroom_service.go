package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/pkg/database"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
	"github.com/noah-isme/attendx-api/pkg/joincode"
)

const (
	classCodeConstraint = "classrooms_class_code_key"
	classCodeAttempts   = 5
	minSearchTerm       = 2
	maxSearchResults    = 10
)

type classroomRepository interface {
	Create(ctx context.Context, classroom *models.Classroom) error
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ListByEducator(ctx context.Context, educatorID string) ([]models.Classroom, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentClassroom, error)
	Search(ctx context.Context, term string, limit int) ([]models.Classroom, error)
	ListEnrollments(ctx context.Context, classroomIDs []string, status *models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
	FindEnrollment(ctx context.Context, classroomID, studentID string) (*models.Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	ReviewEnrollment(ctx context.Context, classroomID, studentID string, status models.EnrollmentStatus, now time.Time) (*models.Enrollment, error)
}

type qrEncoder interface {
	DataURL(link string) (string, error)
}

// ClassroomService manages classrooms, join codes and enrollment review.
type ClassroomService struct {
	repo      classroomRepository
	qr        qrEncoder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	newCode   func(n int) (string, error)
	now       func() time.Time
}

// NewClassroomService constructs ClassroomService. qr may be nil to skip QR rendering and
// cache may be nil when attendance reports are not cached.
func NewClassroomService(repo classroomRepository, qr qrEncoder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{
		repo:      repo,
		qr:        qr,
		cache:     cache,
		validator: validate,
		logger:    logger,
		newCode:   joincode.Generate,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a classroom owned by the calling educator.
func (s *ClassroomService) Create(ctx context.Context, actor models.Actor, req dto.CreateClassroomRequest) (*models.Classroom, error) {
	if !actor.IsEducator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only educators can create classrooms")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	var lastErr error
	for attempt := 0; attempt < classCodeAttempts; attempt++ {
		code, err := s.newCode(joincode.Length)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate class code")
		}
		classroom := &models.Classroom{
			Name:       req.Name,
			Subject:    req.Subject,
			ClassCode:  code,
			JoinLink:   joincode.Link(code),
			EducatorID: actor.UserID,
			CreatedAt:  s.now(),
		}
		classroom.QRCodeURL = s.renderQR(classroom.JoinLink)

		err = s.repo.Create(ctx, classroom)
		if err == nil {
			s.logger.Info("classroom created", zap.String("classroom_id", classroom.ID), zap.String("class_code", code))
			return classroom, nil
		}
		if !database.IsUniqueViolation(err, classCodeConstraint) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
		}
		lastErr = err
		s.logger.Warn("class code collision", zap.String("class_code", code), zap.Int("attempt", attempt+1))
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not allocate a unique class code")
}

func (s *ClassroomService) renderQR(link string) *string {
	if s.qr == nil {
		return nil
	}
	dataURL, err := s.qr.DataURL(link)
	if err != nil {
		s.logger.Warn("qr code generation failed", zap.String("join_link", link), zap.Error(err))
		return nil
	}
	return &dataURL
}

// ListForActor returns owned classrooms with approved students for educators and
// enrollments with their status for students.
func (s *ClassroomService) ListForActor(ctx context.Context, actor models.Actor) (*dto.ClassroomList, error) {
	switch actor.Role {
	case models.RoleEducator:
		classrooms, err := s.repo.ListByEducator(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
		}
		ids := make([]string, 0, len(classrooms))
		for _, classroom := range classrooms {
			ids = append(ids, classroom.ID)
		}
		approved := models.EnrollmentApproved
		enrollments, err := s.repo.ListEnrollments(ctx, ids, &approved)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom students")
		}
		byClassroom := make(map[string][]models.EnrollmentDetail, len(classrooms))
		for _, enrollment := range enrollments {
			byClassroom[enrollment.ClassroomID] = append(byClassroom[enrollment.ClassroomID], enrollment)
		}
		owned := make([]dto.EducatorClassroom, 0, len(classrooms))
		for _, classroom := range classrooms {
			students := byClassroom[classroom.ID]
			if students == nil {
				students = []models.EnrollmentDetail{}
			}
			owned = append(owned, dto.EducatorClassroom{Classroom: classroom, Students: students})
		}
		return &dto.ClassroomList{Role: actor.Role, Owned: owned}, nil
	case models.RoleStudent:
		enrolled, err := s.repo.ListForStudent(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
		}
		if enrolled == nil {
			enrolled = []models.StudentClassroom{}
		}
		return &dto.ClassroomList{Role: actor.Role, Enrolled: enrolled}, nil
	default:
		return nil, appErrors.ErrForbidden
	}
}

// Get returns a classroom with all of its enrollments.
func (s *ClassroomService) Get(ctx context.Context, id string) (*dto.ClassroomDetail, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "classroom not found", "failed to load classroom")
	}
	enrollments, err := s.repo.ListEnrollments(ctx, []string{classroom.ID}, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return &dto.ClassroomDetail{Classroom: *classroom, Enrollments: enrollments}, nil
}

// Search matches classrooms by code, name or subject. Short terms yield no results.
func (s *ClassroomService) Search(ctx context.Context, term string) ([]models.Classroom, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < minSearchTerm {
		return []models.Classroom{}, nil
	}
	classrooms, err := s.repo.Search(ctx, term, maxSearchResults)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search classrooms")
	}
	if classrooms == nil {
		classrooms = []models.Classroom{}
	}
	return classrooms, nil
}

// RequestJoin files a PENDING enrollment for the calling student.
func (s *ClassroomService) RequestJoin(ctx context.Context, actor models.Actor, classroomID string) (*models.Enrollment, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can join classrooms")
	}
	if _, err := s.repo.FindByID(ctx, classroomID); err != nil {
		return nil, notFoundOr(err, "classroom not found", "failed to load classroom")
	}

	existing, err := s.repo.FindEnrollment(ctx, classroomID, actor.UserID)
	switch {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "already "+strings.ToLower(string(existing.Status)))
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{
		ClassroomID: classroomID,
		StudentID:   actor.UserID,
		Status:      models.EnrollmentPending,
		RequestedAt: s.now(),
	}
	if err := s.repo.CreateEnrollment(ctx, enrollment); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request enrollment")
	}
	return enrollment, nil
}

// ReviewEnrollment approves or rejects a student's enrollment. Only the owning educator may review.
func (s *ClassroomService) ReviewEnrollment(ctx context.Context, actor models.Actor, classroomID string, req dto.ReviewEnrollmentRequest) (*models.Enrollment, error) {
	if !actor.IsEducator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only educators can review enrollments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment review payload")
	}
	if req.Status != models.EnrollmentApproved && req.Status != models.EnrollmentRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}

	classroom, err := s.repo.FindByID(ctx, classroomID)
	if err != nil {
		return nil, notFoundOr(err, "classroom not found", "failed to load classroom")
	}
	if classroom.EducatorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not own this classroom")
	}

	enrollment, err := s.repo.ReviewEnrollment(ctx, classroomID, req.StudentID, req.Status, s.now())
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to review enrollment")
	}
	// The roster feeds educator history reports.
	if s.cache != nil {
		s.cache.Invalidate(ctx, attendanceCachePattern)
	}
	s.logger.Info("enrollment reviewed",
		zap.String("classroom_id", classroomID),
		zap.String("student_id", req.StudentID),
		zap.String("status", string(req.Status)),
	)
	return enrollment, nil
}
