package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendx-api/internal/models"
)

const defaultEndedSessionLimit = 50

// AttendanceRepository serves read models for attendance reporting.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListStudentRecords returns every attendance row of a student, newest mark first.
func (r *AttendanceRepository) ListStudentRecords(ctx context.Context, studentID string) ([]models.StudentAttendanceRecord, error) {
	const query = `SELECT a.id, a.live_session_id, a.student_id, a.status, a.marked_at,
ls.start_time AS session_start_time, ls.end_time AS session_end_time,
c.id AS classroom_id, c.name AS classroom_name, c.subject
FROM attendances a
JOIN live_sessions ls ON ls.id = a.live_session_id
JOIN classrooms c ON c.id = ls.classroom_id
WHERE a.student_id = $1
ORDER BY a.marked_at DESC`
	var records []models.StudentAttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// ListEndedSessions returns ENDED sessions of an educator's classrooms, newest start first.
func (r *AttendanceRepository) ListEndedSessions(ctx context.Context, educatorID, classroomID string, limit int) ([]models.EndedSession, error) {
	if limit <= 0 {
		limit = defaultEndedSessionLimit
	}
	query := `SELECT ls.id, ls.classroom_id, c.name AS classroom_name, c.subject, ls.start_time, ls.end_time
FROM live_sessions ls
JOIN classrooms c ON c.id = ls.classroom_id
WHERE c.educator_id = $1 AND ls.status = 'ENDED'`
	args := []interface{}{educatorID}
	if classroomID != "" {
		args = append(args, classroomID)
		query += ` AND ls.classroom_id = $2`
	}
	query += fmt.Sprintf(` ORDER BY ls.start_time DESC LIMIT %d`, limit)

	var sessions []models.EndedSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list ended sessions: %w", err)
	}
	return sessions, nil
}

// ListApprovedRoster returns the currently approved students of the given classrooms.
func (r *AttendanceRepository) ListApprovedRoster(ctx context.Context, classroomIDs []string) ([]models.ClassroomRosterEntry, error) {
	if len(classroomIDs) == 0 {
		return []models.ClassroomRosterEntry{}, nil
	}
	const query = `SELECT cs.classroom_id, cs.student_id, u.name, u.username, u.roll_no
FROM classroom_students cs JOIN users u ON u.id = cs.student_id
WHERE cs.classroom_id = ANY($1) AND cs.status = 'APPROVED'
ORDER BY u.name ASC`
	var roster []models.ClassroomRosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, pq.Array(classroomIDs)); err != nil {
		return nil, fmt.Errorf("list approved roster: %w", err)
	}
	return roster, nil
}

// ListPresentAttendance returns PRESENT attendance markers for the sessions.
func (r *AttendanceRepository) ListPresentAttendance(ctx context.Context, sessionIDs []string) ([]models.SessionPresence, error) {
	return r.listPresence(ctx, "attendance", `SELECT live_session_id, student_id FROM attendances WHERE live_session_id = ANY($1) AND status = 'PRESENT'`, sessionIDs)
}

// ListPresentAttendees returns PRESENT attendee markers for the sessions.
func (r *AttendanceRepository) ListPresentAttendees(ctx context.Context, sessionIDs []string) ([]models.SessionPresence, error) {
	return r.listPresence(ctx, "attendees", `SELECT live_session_id, student_id FROM live_attendees WHERE live_session_id = ANY($1) AND attendance_status = 'PRESENT'`, sessionIDs)
}

func (r *AttendanceRepository) listPresence(ctx context.Context, label, query string, sessionIDs []string) ([]models.SessionPresence, error) {
	if len(sessionIDs) == 0 {
		return []models.SessionPresence{}, nil
	}
	var markers []models.SessionPresence
	if err := r.db.SelectContext(ctx, &markers, query, pq.Array(sessionIDs)); err != nil {
		return nil, fmt.Errorf("list present %s: %w", label, err)
	}
	return markers, nil
}
