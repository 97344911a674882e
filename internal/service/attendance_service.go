package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendx-api/internal/dto"
	"github.com/noah-isme/attendx-api/internal/models"
	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

const historySessionLimit = 50

type attendanceRepository interface {
	ListStudentRecords(ctx context.Context, studentID string) ([]models.StudentAttendanceRecord, error)
	ListEndedSessions(ctx context.Context, educatorID, classroomID string, limit int) ([]models.EndedSession, error)
	ListApprovedRoster(ctx context.Context, classroomIDs []string) ([]models.ClassroomRosterEntry, error)
	ListPresentAttendance(ctx context.Context, sessionIDs []string) ([]models.SessionPresence, error)
	ListPresentAttendees(ctx context.Context, sessionIDs []string) ([]models.SessionPresence, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// AttendanceService builds role-specific attendance reports.
type AttendanceService struct {
	repo   attendanceRepository
	cache  reportCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAttendanceService constructs AttendanceService. cache may be nil.
func NewAttendanceService(repo attendanceRepository, cache reportCache, ttl time.Duration, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Report returns the actor's attendance report and whether it was served from cache.
func (s *AttendanceService) Report(ctx context.Context, actor models.Actor) (*dto.AttendanceReport, bool, error) {
	if !actor.IsEducator() && !actor.IsStudent() {
		return nil, false, appErrors.ErrForbidden
	}

	key := attendanceCacheKey(actor)
	if s.cache != nil {
		var cached dto.AttendanceReport
		if s.cache.Get(ctx, key, &cached) {
			return &cached, true, nil
		}
	}

	report := &dto.AttendanceReport{Role: actor.Role}
	if actor.IsEducator() {
		educator, err := s.EducatorReport(ctx, actor.UserID, "")
		if err != nil {
			return nil, false, err
		}
		report.Educator = educator
	} else {
		student, err := s.StudentReport(ctx, actor.UserID)
		if err != nil {
			return nil, false, err
		}
		report.Student = student
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, report, s.ttl)
	}
	return report, false, nil
}

func attendanceCacheKey(actor models.Actor) string {
	return "attendance:" + string(actor.Role) + ":" + actor.UserID
}

// StudentReport summarises a student's attendance per subject and overall.
func (s *AttendanceService) StudentReport(ctx context.Context, studentID string) (*dto.StudentAttendanceReport, error) {
	records, err := s.repo.ListStudentRecords(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if records == nil {
		records = []models.StudentAttendanceRecord{}
	}

	subjects := make([]dto.SubjectAttendance, 0)
	index := make(map[string]int)
	present := 0
	for _, record := range records {
		i, ok := index[record.Subject]
		if !ok {
			i = len(subjects)
			index[record.Subject] = i
			subjects = append(subjects, dto.SubjectAttendance{Subject: record.Subject, ClassroomName: record.ClassroomName})
		}
		subjects[i].Total++
		if record.Status == models.AttendancePresent {
			subjects[i].Present++
			present++
		}
	}
	for i := range subjects {
		subjects[i].Percentage = percentage(subjects[i].Present, subjects[i].Total)
	}

	return &dto.StudentAttendanceReport{
		Records:  records,
		Subjects: subjects,
		Overall: dto.AttendanceSummary{
			Total:      len(records),
			Present:    present,
			Percentage: percentage(present, len(records)),
		},
	}, nil
}

// EducatorReport resolves every ended session of the educator against the current roster.
// classroomID narrows the history to one classroom when set.
func (s *AttendanceService) EducatorReport(ctx context.Context, educatorID, classroomID string) (*dto.EducatorAttendanceReport, error) {
	sessions, err := s.repo.ListEndedSessions(ctx, educatorID, classroomID, historySessionLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	sessionIDs := make([]string, 0, len(sessions))
	classroomIDs := make([]string, 0)
	seenClassroom := make(map[string]struct{})
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
		if _, ok := seenClassroom[session.ClassroomID]; !ok {
			seenClassroom[session.ClassroomID] = struct{}{}
			classroomIDs = append(classroomIDs, session.ClassroomID)
		}
	}

	roster, err := s.repo.ListApprovedRoster(ctx, classroomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	fromAttendance, err := s.repo.ListPresentAttendance(ctx, sessionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	fromAttendees, err := s.repo.ListPresentAttendees(ctx, sessionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendees")
	}

	rosterByClassroom := make(map[string][]models.ClassroomRosterEntry)
	for _, entry := range roster {
		rosterByClassroom[entry.ClassroomID] = append(rosterByClassroom[entry.ClassroomID], entry)
	}
	attendanceBySession := groupPresence(fromAttendance)
	attendeesBySession := groupPresence(fromAttendees)

	history := make([]dto.SessionHistory, 0, len(sessions))
	for _, session := range sessions {
		entries := rosterByClassroom[session.ClassroomID]
		enrolled := make([]string, 0, len(entries))
		for _, entry := range entries {
			enrolled = append(enrolled, entry.StudentID)
		}
		resolved := resolveAttendance(enrolled, unionPresence(attendanceBySession[session.ID], attendeesBySession[session.ID]))

		item := dto.SessionHistory{
			SessionID:     session.ID,
			ClassroomID:   session.ClassroomID,
			ClassroomName: session.ClassroomName,
			Subject:       session.Subject,
			StartTime:     session.StartTime,
			EndTime:       session.EndTime,
			Students:      make([]dto.StudentSessionStatus, 0, len(entries)),
			TotalStudents: len(entries),
		}
		for _, entry := range entries {
			status := resolved[entry.StudentID]
			if status == models.AttendancePresent {
				item.PresentCount++
			}
			item.Students = append(item.Students, dto.StudentSessionStatus{
				StudentID: entry.StudentID,
				Name:      entry.Name,
				Username:  entry.Username,
				RollNo:    entry.RollNo,
				Status:    status,
			})
		}
		item.AbsentCount = item.TotalStudents - item.PresentCount
		history = append(history, item)
	}

	return &dto.EducatorAttendanceReport{
		Sessions: history,
		Stats: dto.EducatorStats{
			TotalClasses:    len(sessions),
			TotalClassrooms: len(classroomIDs),
		},
	}, nil
}

func groupPresence(markers []models.SessionPresence) map[string][]string {
	grouped := make(map[string][]string)
	for _, marker := range markers {
		grouped[marker.LiveSessionID] = append(grouped[marker.LiveSessionID], marker.StudentID)
	}
	return grouped
}
