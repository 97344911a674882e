package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

const defaultTimetableName = "My Timetable"

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type timetableRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Timetable, error)
	FindOwned(ctx context.Context, id, userID string) (*models.Timetable, error)
	ListSlots(ctx context.Context, timetableIDs []string) ([]models.TimetableSlot, error)
	Create(ctx context.Context, timetable *models.Timetable) error
	AddSlot(ctx context.Context, slot *models.TimetableSlot) error
	DeleteSlot(ctx context.Context, timetableID, slotID string) error
}

// TimetableService manages personal weekly timetables.
type TimetableService struct {
	repo      timetableRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs TimetableService.
func NewTimetableService(repo timetableRepository, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return models.Weekday(fl.Field().String()).Valid()
	})
	return &TimetableService{repo: repo, validator: validate, logger: logger}
}

// List returns the user's timetables with slots ordered by weekday and start time.
func (s *TimetableService) List(ctx context.Context, actor models.Actor) ([]models.Timetable, error) {
	timetables, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	if len(timetables) == 0 {
		return []models.Timetable{}, nil
	}

	ids := make([]string, 0, len(timetables))
	for _, timetable := range timetables {
		ids = append(ids, timetable.ID)
	}
	slots, err := s.repo.ListSlots(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}
	byTimetable := make(map[string][]models.TimetableSlot, len(timetables))
	for _, slot := range slots {
		byTimetable[slot.TimetableID] = append(byTimetable[slot.TimetableID], slot)
	}
	for i := range timetables {
		timetables[i].Slots = byTimetable[timetables[i].ID]
		if timetables[i].Slots == nil {
			timetables[i].Slots = []models.TimetableSlot{}
		}
	}
	return timetables, nil
}

// Create stores a timetable with its optional initial slots.
func (s *TimetableService) Create(ctx context.Context, actor models.Actor, req dto.CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	timetable := &models.Timetable{
		UserID: actor.UserID,
		Name:   strings.TrimSpace(req.Name),
		Slots:  make([]models.TimetableSlot, 0, len(req.Slots)),
	}
	if timetable.Name == "" {
		timetable.Name = defaultTimetableName
	}
	for _, slotReq := range req.Slots {
		slot, err := buildSlot(slotReq)
		if err != nil {
			return nil, err
		}
		timetable.Slots = append(timetable.Slots, slot)
	}

	if err := s.repo.Create(ctx, timetable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	return timetable, nil
}

// AddSlot appends a slot to one of the user's timetables.
func (s *TimetableService) AddSlot(ctx context.Context, actor models.Actor, timetableID string, req dto.SlotRequest) (*models.TimetableSlot, error) {
	if _, err := s.repo.FindOwned(ctx, timetableID, actor.UserID); err != nil {
		return nil, notFoundOr(err, "timetable not found", "failed to load timetable")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slot, err := buildSlot(req)
	if err != nil {
		return nil, err
	}
	slot.TimetableID = timetableID
	if err := s.repo.AddSlot(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add slot")
	}
	return &slot, nil
}

// DeleteSlot removes a slot from one of the user's timetables.
func (s *TimetableService) DeleteSlot(ctx context.Context, actor models.Actor, timetableID, slotID string) error {
	if _, err := s.repo.FindOwned(ctx, timetableID, actor.UserID); err != nil {
		return notFoundOr(err, "timetable not found", "failed to load timetable")
	}
	if err := s.repo.DeleteSlot(ctx, timetableID, slotID); err != nil {
		return notFoundOr(err, "slot not found", "failed to delete slot")
	}
	return nil
}

func buildSlot(req dto.SlotRequest) (models.TimetableSlot, error) {
	// HH:MM compares correctly as a string.
	if req.EndTime <= req.StartTime {
		return models.TimetableSlot{}, appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}
	slot := models.TimetableSlot{
		Day:           req.Day,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Subject:       strings.TrimSpace(req.Subject),
		IsBreak:       req.IsBreak,
		BreakDuration: req.BreakDuration,
	}
	if req.ClassroomID != nil && strings.TrimSpace(*req.ClassroomID) != "" {
		id := strings.TrimSpace(*req.ClassroomID)
		slot.ClassroomID = &id
	}
	return slot, nil
}
