package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendx-api/internal/models"
)

const (
	sessionColumns  = `ls.id, ls.classroom_id, ls.status, ls.start_time, ls.end_time, ls.portal_open, ls.portal_duration, ls.portal_close_time, ls.admitted_count, ls.created_at`
	attendeeColumns = `id, live_session_id, student_id, joined_at, admitted_at, attendance_called, called_at, attendance_status`

	defaultSessionListLimit = 20
)

// SessionStore is the persistence surface of the live session lifecycle. The same
// methods run against the pool or inside a transaction opened by Atomic.
type SessionStore interface {
	LockClassroom(ctx context.Context, classroomID string) (*models.Classroom, error)
	EndLiveSessions(ctx context.Context, classroomID string, now time.Time) (int64, error)
	CreateSession(ctx context.Context, session *models.LiveSession) error
	GetSession(ctx context.Context, sessionID string, forUpdate bool) (*models.SessionWithOwner, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]models.SessionListItem, error)
	SetPortal(ctx context.Context, sessionID string, open bool, duration int, closeTime *time.Time) error
	FinishSession(ctx context.Context, sessionID string, status models.SessionStatus, now time.Time) error

	GetAttendee(ctx context.Context, sessionID, studentID string) (*models.Attendee, error)
	UpsertAttendee(ctx context.Context, sessionID, studentID string, now time.Time) (*models.Attendee, error)
	AdmitAttendee(ctx context.Context, sessionID, studentID string, now time.Time) (bool, error)
	AdmitAllAttendees(ctx context.Context, sessionID string, now time.Time) (int64, error)
	IncrementAdmittedCount(ctx context.Context, sessionID string) error
	RefreshAdmittedCount(ctx context.Context, sessionID string) (int, error)
	MarkAttendeeCalled(ctx context.Context, attendeeID string, now time.Time) error
	MarkPendingAttendeesAbsent(ctx context.Context, sessionID string) (int64, error)
	ListAttendees(ctx context.Context, sessionID string) ([]models.AttendeeDetail, error)

	UpsertAttendance(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, now time.Time) error
	CountAttendances(ctx context.Context, sessionID string) (int, error)
	PresentAttendanceStudentIDs(ctx context.Context, sessionID string) ([]string, error)
	PresentAttendeeStudentIDs(ctx context.Context, sessionID string) ([]string, error)
	ApprovedStudentIDs(ctx context.Context, classroomID string) ([]string, error)
}

// SessionFilter scopes session listings to what an actor may see.
type SessionFilter struct {
	EducatorID  string
	StudentID   string
	ClassroomID string
	Limit       int
}

// LiveSessionRepository persists live sessions, attendees and attendance records.
type LiveSessionRepository struct {
	*sessionStore
	db *sqlx.DB
}

// NewLiveSessionRepository constructs the repository.
func NewLiveSessionRepository(db *sqlx.DB) *LiveSessionRepository {
	return &LiveSessionRepository{sessionStore: &sessionStore{q: db}, db: db}
}

// Atomic runs fn inside a single transaction. fn's error rolls everything back.
func (r *LiveSessionRepository) Atomic(ctx context.Context, fn func(store SessionStore) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sessionStore{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session transaction: %w", err)
	}
	return nil
}

// CloseExpiredPortals closes every open portal whose deadline is at or before now.
func (r *LiveSessionRepository) CloseExpiredPortals(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE live_sessions SET portal_open = FALSE
WHERE portal_open = TRUE AND status = 'LIVE' AND portal_close_time IS NOT NULL AND portal_close_time <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("close expired portals: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

type sessionStore struct {
	q sqlx.ExtContext
}

func (s *sessionStore) LockClassroom(ctx context.Context, classroomID string) (*models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE id = $1 FOR UPDATE`
	var classroom models.Classroom
	if err := sqlx.GetContext(ctx, s.q, &classroom, query, classroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock classroom: %w", err)
	}
	return &classroom, nil
}

func (s *sessionStore) EndLiveSessions(ctx context.Context, classroomID string, now time.Time) (int64, error) {
	const query = `UPDATE live_sessions SET status = 'ENDED', end_time = $2, portal_open = FALSE WHERE classroom_id = $1 AND status = 'LIVE'`
	res, err := s.q.ExecContext(ctx, query, classroomID, now)
	if err != nil {
		return 0, fmt.Errorf("end live sessions: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *sessionStore) CreateSession(ctx context.Context, session *models.LiveSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.StartTime
	}
	const query = `INSERT INTO live_sessions (id, classroom_id, status, start_time, end_time, portal_open, portal_duration, portal_close_time, admitted_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := s.q.ExecContext(ctx, query,
		session.ID, session.ClassroomID, session.Status, session.StartTime, session.EndTime,
		session.PortalOpen, session.PortalDuration, session.PortalCloseTime, session.AdmittedCount, session.CreatedAt,
	); err != nil {
		return fmt.Errorf("create live session: %w", err)
	}
	return nil
}

func (s *sessionStore) GetSession(ctx context.Context, sessionID string, forUpdate bool) (*models.SessionWithOwner, error) {
	query := `SELECT ` + sessionColumns + `, c.educator_id, c.name AS classroom_name, c.subject AS classroom_subject FROM live_sessions ls JOIN classrooms c ON c.id = ls.classroom_id WHERE ls.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF ls`
	}
	var session models.SessionWithOwner
	if err := sqlx.GetContext(ctx, s.q, &session, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get live session: %w", err)
	}
	return &session, nil
}

func (s *sessionStore) ListSessions(ctx context.Context, filter SessionFilter) ([]models.SessionListItem, error) {
	query := `SELECT ` + sessionColumns + `, c.name AS classroom_name, c.subject AS classroom_subject,
(SELECT COUNT(*) FROM live_attendees la WHERE la.live_session_id = ls.id) AS attendee_count
FROM live_sessions ls JOIN classrooms c ON c.id = ls.classroom_id`

	var args []interface{}
	switch {
	case filter.EducatorID != "":
		args = append(args, filter.EducatorID)
		query += fmt.Sprintf(` WHERE c.educator_id = $%d`, len(args))
	case filter.StudentID != "":
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(` WHERE EXISTS (SELECT 1 FROM classroom_students cs WHERE cs.classroom_id = ls.classroom_id AND cs.student_id = $%d AND cs.status = 'APPROVED')`, len(args))
	default:
		return []models.SessionListItem{}, nil
	}
	if filter.ClassroomID != "" {
		args = append(args, filter.ClassroomID)
		query += fmt.Sprintf(` AND ls.classroom_id = $%d`, len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSessionListLimit
	}
	query += fmt.Sprintf(` ORDER BY ls.start_time DESC LIMIT %d`, limit)

	var items []models.SessionListItem
	if err := sqlx.SelectContext(ctx, s.q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	return items, nil
}

func (s *sessionStore) SetPortal(ctx context.Context, sessionID string, open bool, duration int, closeTime *time.Time) error {
	const query = `UPDATE live_sessions SET portal_open = $2, portal_duration = $3, portal_close_time = $4 WHERE id = $1`
	if _, err := s.q.ExecContext(ctx, query, sessionID, open, duration, closeTime); err != nil {
		return fmt.Errorf("update portal: %w", err)
	}
	return nil
}

// FinishSession keeps the first end_time so repeated End calls do not move it.
func (s *sessionStore) FinishSession(ctx context.Context, sessionID string, status models.SessionStatus, now time.Time) error {
	const query = `UPDATE live_sessions SET status = $2, end_time = COALESCE(end_time, $3), portal_open = FALSE WHERE id = $1`
	if _, err := s.q.ExecContext(ctx, query, sessionID, status, now); err != nil {
		return fmt.Errorf("finish live session: %w", err)
	}
	return nil
}

func (s *sessionStore) GetAttendee(ctx context.Context, sessionID, studentID string) (*models.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM live_attendees WHERE live_session_id = $1 AND student_id = $2`
	var attendee models.Attendee
	if err := sqlx.GetContext(ctx, s.q, &attendee, query, sessionID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get attendee: %w", err)
	}
	return &attendee, nil
}

func (s *sessionStore) UpsertAttendee(ctx context.Context, sessionID, studentID string, now time.Time) (*models.Attendee, error) {
	query := `INSERT INTO live_attendees (id, live_session_id, student_id, joined_at, attendance_status)
VALUES ($1, $2, $3, $4, 'PENDING')
ON CONFLICT ON CONSTRAINT live_attendees_session_student_key DO UPDATE SET student_id = EXCLUDED.student_id
RETURNING ` + attendeeColumns
	var attendee models.Attendee
	if err := sqlx.GetContext(ctx, s.q, &attendee, query, uuid.NewString(), sessionID, studentID, now); err != nil {
		return nil, fmt.Errorf("upsert attendee: %w", err)
	}
	return &attendee, nil
}

// AdmitAttendee reports whether the attendee moved from un-admitted to admitted.
func (s *sessionStore) AdmitAttendee(ctx context.Context, sessionID, studentID string, now time.Time) (bool, error) {
	const query = `UPDATE live_attendees SET admitted_at = $3 WHERE live_session_id = $1 AND student_id = $2 AND admitted_at IS NULL`
	res, err := s.q.ExecContext(ctx, query, sessionID, studentID, now)
	if err != nil {
		return false, fmt.Errorf("admit attendee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("admit attendee rows: %w", err)
	}
	return affected > 0, nil
}

func (s *sessionStore) AdmitAllAttendees(ctx context.Context, sessionID string, now time.Time) (int64, error) {
	const query = `UPDATE live_attendees SET admitted_at = $2 WHERE live_session_id = $1 AND admitted_at IS NULL`
	res, err := s.q.ExecContext(ctx, query, sessionID, now)
	if err != nil {
		return 0, fmt.Errorf("admit all attendees: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *sessionStore) IncrementAdmittedCount(ctx context.Context, sessionID string) error {
	const query = `UPDATE live_sessions SET admitted_count = admitted_count + 1 WHERE id = $1`
	if _, err := s.q.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("increment admitted count: %w", err)
	}
	return nil
}

func (s *sessionStore) RefreshAdmittedCount(ctx context.Context, sessionID string) (int, error) {
	const query = `UPDATE live_sessions SET admitted_count = (
SELECT COUNT(*) FROM live_attendees WHERE live_session_id = $1 AND admitted_at IS NOT NULL
) WHERE id = $1 RETURNING admitted_count`
	var count int
	if err := sqlx.GetContext(ctx, s.q, &count, query, sessionID); err != nil {
		return 0, fmt.Errorf("refresh admitted count: %w", err)
	}
	return count, nil
}

func (s *sessionStore) MarkAttendeeCalled(ctx context.Context, attendeeID string, now time.Time) error {
	const query = `UPDATE live_attendees SET attendance_called = TRUE, called_at = $2, attendance_status = 'PRESENT' WHERE id = $1`
	if _, err := s.q.ExecContext(ctx, query, attendeeID, now); err != nil {
		return fmt.Errorf("mark attendee called: %w", err)
	}
	return nil
}

func (s *sessionStore) MarkPendingAttendeesAbsent(ctx context.Context, sessionID string) (int64, error) {
	const query = `UPDATE live_attendees SET attendance_status = 'ABSENT' WHERE live_session_id = $1 AND attendance_status = 'PENDING'`
	res, err := s.q.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("mark pending attendees absent: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *sessionStore) ListAttendees(ctx context.Context, sessionID string) ([]models.AttendeeDetail, error) {
	const query = `SELECT la.id, la.live_session_id, la.student_id, la.joined_at, la.admitted_at, la.attendance_called, la.called_at, la.attendance_status,
u.name AS student_name, u.username AS student_username, u.roll_no AS student_roll_no
FROM live_attendees la JOIN users u ON u.id = la.student_id
WHERE la.live_session_id = $1
ORDER BY la.joined_at ASC`
	var attendees []models.AttendeeDetail
	if err := sqlx.SelectContext(ctx, s.q, &attendees, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}

func (s *sessionStore) UpsertAttendance(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, now time.Time) error {
	const query = `INSERT INTO attendances (id, live_session_id, student_id, status, marked_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT attendances_session_student_key DO UPDATE SET status = EXCLUDED.status, marked_at = EXCLUDED.marked_at`
	if _, err := s.q.ExecContext(ctx, query, uuid.NewString(), sessionID, studentID, status, now); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

func (s *sessionStore) CountAttendances(ctx context.Context, sessionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendances WHERE live_session_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, s.q, &count, query, sessionID); err != nil {
		return 0, fmt.Errorf("count attendances: %w", err)
	}
	return count, nil
}

func (s *sessionStore) PresentAttendanceStudentIDs(ctx context.Context, sessionID string) ([]string, error) {
	return s.selectIDs(ctx, "present attendance", `SELECT student_id FROM attendances WHERE live_session_id = $1 AND status = 'PRESENT'`, sessionID)
}

func (s *sessionStore) PresentAttendeeStudentIDs(ctx context.Context, sessionID string) ([]string, error) {
	return s.selectIDs(ctx, "present attendees", `SELECT student_id FROM live_attendees WHERE live_session_id = $1 AND attendance_status = 'PRESENT'`, sessionID)
}

func (s *sessionStore) ApprovedStudentIDs(ctx context.Context, classroomID string) ([]string, error) {
	return s.selectIDs(ctx, "approved students", `SELECT student_id FROM classroom_students WHERE classroom_id = $1 AND status = 'APPROVED' ORDER BY student_id`, classroomID)
}

func (s *sessionStore) selectIDs(ctx context.Context, label, query string, arg string) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, s.q, &ids, query, arg); err != nil {
		return nil, fmt.Errorf("list %s: %w", label, err)
	}
	return ids, nil
}
