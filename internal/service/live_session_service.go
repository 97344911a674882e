package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	"github.com/noah-isme/attendx-api/internal/repository"
	"github.com/noah-isme/attendx-api/pkg/database"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

const (
	defaultPortalDuration = 5
	minPortalDuration     = 1
	maxPortalDuration     = 180

	attendanceCachePattern = "attendance:*"
	liveSessionConstraint  = "live_sessions_one_live_per_classroom"
)

type liveSessionStore interface {
	repository.SessionStore
	Atomic(ctx context.Context, fn func(store repository.SessionStore) error) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string)
}

// LiveSessionConfig tunes session defaults.
type LiveSessionConfig struct {
	DefaultPortalDuration int
}

// LiveSessionService drives live sessions through their lifecycle and reconciles attendance on end.
type LiveSessionService struct {
	store           liveSessionStore
	cache           cacheInvalidator
	metrics         *MetricsService
	logger          *zap.Logger
	defaultDuration int
	now             func() time.Time
}

// NewLiveSessionService constructs the lifecycle controller. cache and metrics may be nil.
func NewLiveSessionService(store liveSessionStore, cache cacheInvalidator, metrics *MetricsService, logger *zap.Logger, cfg LiveSessionConfig) *LiveSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	duration := cfg.DefaultPortalDuration
	if duration < minPortalDuration || duration > maxPortalDuration {
		duration = defaultPortalDuration
	}
	return &LiveSessionService{
		store:           store,
		cache:           cache,
		metrics:         metrics,
		logger:          logger,
		defaultDuration: duration,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a new LIVE session for a classroom, force-ending any session still live there.
func (s *LiveSessionService) Start(ctx context.Context, actor models.Actor, req dto.StartSessionRequest) (*models.LiveSession, error) {
	if !actor.IsEducator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only educators can start sessions")
	}
	classroomID := strings.TrimSpace(req.ClassroomID)
	if classroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroomId is required")
	}
	duration, err := resolvePortalDuration(req.PortalDuration, s.defaultDuration)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.LiveSession{
		ClassroomID:    classroomID,
		Status:         models.SessionLive,
		StartTime:      now,
		PortalDuration: duration,
		CreatedAt:      now,
	}

	var ended int64
	err = s.store.Atomic(ctx, func(store repository.SessionStore) error {
		classroom, err := store.LockClassroom(ctx, classroomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
			}
			return err
		}
		if classroom.EducatorID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "you do not own this classroom")
		}
		if ended, err = store.EndLiveSessions(ctx, classroomID, now); err != nil {
			return err
		}
		return store.CreateSession(ctx, session)
	})
	if err != nil {
		if database.IsUniqueViolation(err, liveSessionConstraint) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "another session was started for this classroom")
		}
		return nil, internalOr(err, "failed to start session")
	}

	if ended > 0 {
		s.invalidateReports(ctx)
	}
	s.metrics.RecordSessionTransition("start")
	s.logger.Info("live session started",
		zap.String("session_id", session.ID),
		zap.String("classroom_id", classroomID),
		zap.Int64("force_ended", ended),
	)
	return session, nil
}

// Get returns a session with its classroom, attendees and counts.
func (s *LiveSessionService) Get(ctx context.Context, actor models.Actor, sessionID string) (*dto.SessionDetail, error) {
	session, err := s.store.GetSession(ctx, sessionID, false)
	if err != nil {
		return nil, notFoundOr(err, "session not found", "failed to load session")
	}
	attendees, err := s.store.ListAttendees(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendees")
	}
	attendances, err := s.store.CountAttendances(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	if attendees == nil {
		attendees = []models.AttendeeDetail{}
	}

	return &dto.SessionDetail{
		LiveSession: session.LiveSession,
		Classroom: models.ClassroomSummary{
			ID:         session.ClassroomID,
			Name:       session.ClassroomName,
			Subject:    session.ClassroomSubject,
			EducatorID: session.EducatorID,
		},
		Attendees:       attendees,
		AttendeeCount:   len(attendees),
		AttendanceCount: attendances,
	}, nil
}

// List returns recent sessions visible to the actor, optionally for one classroom.
func (s *LiveSessionService) List(ctx context.Context, actor models.Actor, classroomID string) ([]models.SessionListItem, error) {
	filter := repository.SessionFilter{ClassroomID: strings.TrimSpace(classroomID)}
	switch actor.Role {
	case models.RoleEducator:
		filter.EducatorID = actor.UserID
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	items, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if items == nil {
		items = []models.SessionListItem{}
	}
	return items, nil
}

// OpenPortal opens the attendance portal until now + duration minutes.
func (s *LiveSessionService) OpenPortal(ctx context.Context, actor models.Actor, sessionID string, duration *int) (*models.LiveSession, error) {
	var updated models.LiveSession
	err := s.store.Atomic(ctx, func(store repository.SessionStore) error {
		session, err := s.loadOwnedLive(ctx, store, actor, sessionID)
		if err != nil {
			return err
		}
		minutes, err := resolvePortalDuration(duration, session.PortalDuration)
		if err != nil {
			return err
		}
		closeTime := s.now().Add(time.Duration(minutes) * time.Minute)
		if err := store.SetPortal(ctx, sessionID, true, minutes, &closeTime); err != nil {
			return err
		}
		updated = session.LiveSession
		updated.PortalOpen = true
		updated.PortalDuration = minutes
		updated.PortalCloseTime = &closeTime
		return nil
	})
	if err != nil {
		return nil, internalOr(err, "failed to open portal")
	}
	s.metrics.RecordSessionTransition("open-portal")
	return &updated, nil
}

// ClosePortal closes the attendance portal early. The stored deadline is kept.
func (s *LiveSessionService) ClosePortal(ctx context.Context, actor models.Actor, sessionID string) (*models.LiveSession, error) {
	var updated models.LiveSession
	err := s.store.Atomic(ctx, func(store repository.SessionStore) error {
		session, err := s.loadOwnedLive(ctx, store, actor, sessionID)
		if err != nil {
			return err
		}
		if err := store.SetPortal(ctx, sessionID, false, session.PortalDuration, session.PortalCloseTime); err != nil {
			return err
		}
		updated = session.LiveSession
		updated.PortalOpen = false
		return nil
	})
	if err != nil {
		return nil, internalOr(err, "failed to close portal")
	}
	s.metrics.RecordSessionTransition("close-portal")
	return &updated, nil
}

// Admit admits one joined student, or every waiting attendee when target is "all".
func (s *LiveSessionService) Admit(ctx context.Context, actor models.Actor, sessionID, target string) (*dto.AdmitResult, error) {
	target = strings.TrimSpace(target)

	result := &dto.AdmitResult{SessionID: sessionID}
	err := s.store.Atomic(ctx, func(store repository.SessionStore) error {
		session, err := s.loadOwnedLive(ctx, store, actor, sessionID)
		if err != nil {
			return err
		}
		if target == "" {
			return appErrors.Clone(appErrors.ErrValidation, "studentId is required")
		}

		now := s.now()
		if target == dto.AdmitAll {
			admitted, err := store.AdmitAllAttendees(ctx, sessionID, now)
			if err != nil {
				return err
			}
			count, err := store.RefreshAdmittedCount(ctx, sessionID)
			if err != nil {
				return err
			}
			result.Count = int(admitted)
			result.AdmittedCount = count
			return nil
		}

		if _, err := store.GetAttendee(ctx, sessionID, target); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student has not joined this session")
			}
			return err
		}
		changed, err := store.AdmitAttendee(ctx, sessionID, target, now)
		if err != nil {
			return err
		}
		result.Admitted = []string{target}
		result.AdmittedCount = session.AdmittedCount
		if changed {
			if err := store.IncrementAdmittedCount(ctx, sessionID); err != nil {
				return err
			}
			result.Count = 1
			result.AdmittedCount++
		}
		return nil
	})
	if err != nil {
		return nil, internalOr(err, "failed to admit attendee")
	}
	s.metrics.RecordSessionTransition("admit")
	return result, nil
}

// Join records the student as an attendee of a live session. Repeated joins return the existing row.
func (s *LiveSessionService) Join(ctx context.Context, actor models.Actor, sessionID string) (*models.Attendee, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can join sessions")
	}
	session, err := s.store.GetSession(ctx, sessionID, false)
	if err != nil {
		return nil, notFoundOr(err, "session not found", "failed to load session")
	}
	if session.Status != models.SessionLive {
		return nil, appErrors.Clone(appErrors.ErrSessionNotLive, "session is "+strings.ToLower(string(session.Status)))
	}
	attendee, err := s.store.UpsertAttendee(ctx, sessionID, actor.UserID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join session")
	}
	return attendee, nil
}

// CallAttendance is a student's self-declared presence. The attendee update and the
// attendance upsert commit together while the session row is locked.
func (s *LiveSessionService) CallAttendance(ctx context.Context, actor models.Actor, sessionID string) (*dto.CallAttendanceResult, error) {
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can call attendance")
	}

	var result *dto.CallAttendanceResult
	err := s.store.Atomic(ctx, func(store repository.SessionStore) error {
		session, err := store.GetSession(ctx, sessionID, true)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "session not found")
			}
			return err
		}

		// Admission gates the call before any portal state is considered.
		attendee, err := store.GetAttendee(ctx, sessionID, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if attendee == nil || !attendee.Admitted() {
			return appErrors.ErrNotAdmitted
		}

		now := s.now()
		if err := checkPortal(&session.LiveSession, now); err != nil {
			return err
		}
		if attendee.AttendanceCalled {
			return appErrors.ErrAlreadyCalled
		}

		if err := store.MarkAttendeeCalled(ctx, attendee.ID, now); err != nil {
			return err
		}
		if err := store.UpsertAttendance(ctx, sessionID, actor.UserID, models.AttendancePresent, now); err != nil {
			return err
		}
		result = &dto.CallAttendanceResult{
			SessionID: sessionID,
			StudentID: actor.UserID,
			Status:    models.AttendancePresent,
			MarkedAt:  now,
		}
		return nil
	})
	if err != nil {
		appErr := internalOr(err, "failed to record attendance")
		s.metrics.RecordAttendanceCall(appErr.Code)
		return nil, appErr
	}
	s.invalidateReports(ctx)
	s.metrics.RecordAttendanceCall("ok")
	return result, nil
}

// End finishes a session and writes one attendance row per approved student.
// Ending an already ENDED session repeats the reconciliation and converges to the same rows.
func (s *LiveSessionService) End(ctx context.Context, actor models.Actor, sessionID string) (*dto.EndSessionResult, error) {
	result := &dto.EndSessionResult{}
	err := s.store.Atomic(ctx, func(store repository.SessionStore) error {
		session, err := s.loadOwned(ctx, store, actor, sessionID)
		if err != nil {
			return err
		}
		if session.Status == models.SessionCancelled {
			return appErrors.Clone(appErrors.ErrConflict, "cancelled sessions cannot be ended")
		}

		now := s.now()
		if err := store.FinishSession(ctx, sessionID, models.SessionEnded, now); err != nil {
			return err
		}
		if result.MarkedAbsent, err = store.MarkPendingAttendeesAbsent(ctx, sessionID); err != nil {
			return err
		}

		enrolled, err := store.ApprovedStudentIDs(ctx, session.ClassroomID)
		if err != nil {
			return err
		}
		fromAttendance, err := store.PresentAttendanceStudentIDs(ctx, sessionID)
		if err != nil {
			return err
		}
		fromAttendees, err := store.PresentAttendeeStudentIDs(ctx, sessionID)
		if err != nil {
			return err
		}

		resolved := resolveAttendance(enrolled, unionPresence(fromAttendance, fromAttendees))
		for _, studentID := range enrolled {
			status := resolved[studentID]
			if err := store.UpsertAttendance(ctx, sessionID, studentID, status, now); err != nil {
				return err
			}
			if status == models.AttendancePresent {
				result.PresentCount++
			} else {
				result.AbsentCount++
			}
		}
		result.EnrolledCount = len(enrolled)

		result.Session = session.LiveSession
		result.Session.Status = models.SessionEnded
		result.Session.PortalOpen = false
		if result.Session.EndTime == nil {
			result.Session.EndTime = &now
		}
		return nil
	})
	if err != nil {
		return nil, internalOr(err, "failed to end session")
	}

	s.invalidateReports(ctx)
	s.metrics.RecordSessionTransition("end")
	s.logger.Info("live session ended",
		zap.String("session_id", sessionID),
		zap.Int("enrolled", result.EnrolledCount),
		zap.Int("present", result.PresentCount),
	)
	return result, nil
}

// Cancel abandons a LIVE session without writing attendance.
func (s *LiveSessionService) Cancel(ctx context.Context, actor models.Actor, sessionID string) (*models.LiveSession, error) {
	var updated models.LiveSession
	err := s.store.Atomic(ctx, func(store repository.SessionStore) error {
		session, err := s.loadOwned(ctx, store, actor, sessionID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionLive {
			return appErrors.Clone(appErrors.ErrConflict, "only live sessions can be cancelled")
		}
		now := s.now()
		if err := store.FinishSession(ctx, sessionID, models.SessionCancelled, now); err != nil {
			return err
		}
		updated = session.LiveSession
		updated.Status = models.SessionCancelled
		updated.PortalOpen = false
		updated.EndTime = &now
		return nil
	})
	if err != nil {
		return nil, internalOr(err, "failed to cancel session")
	}
	s.metrics.RecordSessionTransition("cancel")
	return &updated, nil
}

func (s *LiveSessionService) invalidateReports(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, attendanceCachePattern)
	}
}

// loadOwned locks the session row and enforces educator ownership.
func (s *LiveSessionService) loadOwned(ctx context.Context, store repository.SessionStore, actor models.Actor, sessionID string) (*models.SessionWithOwner, error) {
	if !actor.IsEducator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the classroom educator can manage this session")
	}
	session, err := store.GetSession(ctx, sessionID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, err
	}
	if !session.OwnedBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not own this session")
	}
	return session, nil
}

func (s *LiveSessionService) loadOwnedLive(ctx context.Context, store repository.SessionStore, actor models.Actor, sessionID string) (*models.SessionWithOwner, error) {
	session, err := s.loadOwned(ctx, store, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionLive {
		return nil, appErrors.Clone(appErrors.ErrSessionNotLive, "session is "+strings.ToLower(string(session.Status)))
	}
	return session, nil
}

// checkPortal enforces the portal preconditions of an attendance call. The deadline
// is authoritative even while the open flag is still set.
func checkPortal(session *models.LiveSession, now time.Time) error {
	if session.Status != models.SessionLive || !session.PortalOpen {
		return appErrors.ErrPortalClosed
	}
	if session.PortalCloseTime != nil && !now.Before(*session.PortalCloseTime) {
		return appErrors.ErrPortalExpired
	}
	return nil
}

func resolvePortalDuration(requested *int, fallback int) (int, error) {
	if requested == nil || *requested == 0 {
		return fallback, nil
	}
	if *requested < minPortalDuration || *requested > maxPortalDuration {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("portalDuration must be between %d and %d minutes", minPortalDuration, maxPortalDuration))
	}
	return *requested, nil
}

// internalOr keeps typed errors and wraps anything else as an internal failure.
func internalOr(err error, message string) *appErrors.Error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFoundOr(err error, notFound, internal string) *appErrors.Error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalOr(err, internal)
}
