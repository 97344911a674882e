package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendx-api/internal/models"
)

const classroomColumns = `id, name, subject, class_code, join_link, qr_code_url, educator_id, student_count, created_at`

// ClassroomRepository persists classrooms and their enrollments.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// Create inserts a classroom. A class_code collision surfaces as the raw driver error.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classrooms (id, name, subject, class_code, join_link, qr_code_url, educator_id, student_count, created_at)
VALUES (:id, :name, :subject, :class_code, :join_link, :qr_code_url, :educator_id, :student_count, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// FindByID returns the classroom or sql.ErrNoRows.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find classroom: %w", err)
	}
	return &classroom, nil
}

// ListByEducator returns the classrooms owned by an educator, newest first.
func (r *ClassroomRepository) ListByEducator(ctx context.Context, educatorID string) ([]models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE educator_id = $1 ORDER BY created_at DESC`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, educatorID); err != nil {
		return nil, fmt.Errorf("list educator classrooms: %w", err)
	}
	return classrooms, nil
}

// ListForStudent returns every classroom the student has an enrollment in, whatever its status.
func (r *ClassroomRepository) ListForStudent(ctx context.Context, studentID string) ([]models.StudentClassroom, error) {
	const query = `SELECT c.id, c.name, c.subject, c.class_code, c.join_link, c.qr_code_url, c.educator_id, c.student_count, c.created_at,
cs.status AS enrollment_status, cs.requested_at, cs.joined_at, u.name AS educator_name
FROM classroom_students cs
JOIN classrooms c ON c.id = cs.classroom_id
JOIN users u ON u.id = c.educator_id
WHERE cs.student_id = $1
ORDER BY cs.requested_at DESC`
	var classrooms []models.StudentClassroom
	if err := r.db.SelectContext(ctx, &classrooms, query, studentID); err != nil {
		return nil, fmt.Errorf("list student classrooms: %w", err)
	}
	return classrooms, nil
}

// Search matches class code, name or subject case-insensitively.
func (r *ClassroomRepository) Search(ctx context.Context, term string, limit int) ([]models.Classroom, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + classroomColumns + ` FROM classrooms
WHERE UPPER(class_code) = $1 OR LOWER(name) LIKE $2 OR LOWER(subject) LIKE $2
ORDER BY created_at DESC LIMIT $3`
	pattern := "%" + strings.ToLower(term) + "%"
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, strings.ToUpper(term), pattern, limit); err != nil {
		return nil, fmt.Errorf("search classrooms: %w", err)
	}
	return classrooms, nil
}

// ListEnrollments returns enrollments of the given classrooms with student profiles.
// A nil status returns every enrollment.
func (r *ClassroomRepository) ListEnrollments(ctx context.Context, classroomIDs []string, status *models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	if len(classroomIDs) == 0 {
		return []models.EnrollmentDetail{}, nil
	}
	query := `SELECT cs.id, cs.classroom_id, cs.student_id, cs.status, cs.requested_at, cs.joined_at,
u.name AS student_name, u.username AS student_username, u.email AS student_email, u.roll_no AS student_roll_no
FROM classroom_students cs
JOIN users u ON u.id = cs.student_id
WHERE cs.classroom_id = ANY($1)`
	args := []interface{}{pq.Array(classroomIDs)}
	if status != nil {
		query += ` AND cs.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY cs.requested_at ASC`

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindEnrollment returns the enrollment of a student in a classroom or sql.ErrNoRows.
func (r *ClassroomRepository) FindEnrollment(ctx context.Context, classroomID, studentID string) (*models.Enrollment, error) {
	const query = `SELECT id, classroom_id, student_id, status, requested_at, joined_at FROM classroom_students WHERE classroom_id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, classroomID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// CreateEnrollment inserts a join request.
func (r *ClassroomRepository) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.RequestedAt.IsZero() {
		enrollment.RequestedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentPending
	}
	const query = `INSERT INTO classroom_students (id, classroom_id, student_id, status, requested_at, joined_at)
VALUES (:id, :classroom_id, :student_id, :status, :requested_at, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ReviewEnrollment moves an enrollment to APPROVED or REJECTED and keeps the classroom's
// student_count in step with real transitions. Returns sql.ErrNoRows when no enrollment exists.
func (r *ClassroomRepository) ReviewEnrollment(ctx context.Context, classroomID, studentID string, status models.EnrollmentStatus, now time.Time) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Enrollment
	const lockQuery = `SELECT id, classroom_id, student_id, status, requested_at, joined_at FROM classroom_students WHERE classroom_id = $1 AND student_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, classroomID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}

	var joinedAt *time.Time
	if status == models.EnrollmentApproved {
		joinedAt = current.JoinedAt
		if current.Status != models.EnrollmentApproved || joinedAt == nil {
			joinedAt = &now
		}
	}

	const updateQuery = `UPDATE classroom_students SET status = $2, joined_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, current.ID, status, joinedAt); err != nil {
		return nil, fmt.Errorf("update enrollment: %w", err)
	}

	delta := studentCountDelta(current.Status, status)
	if delta != 0 {
		const countQuery = `UPDATE classrooms SET student_count = GREATEST(student_count + $2, 0) WHERE id = $1`
		if _, err = tx.ExecContext(ctx, countQuery, classroomID, delta); err != nil {
			return nil, fmt.Errorf("update student count: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment review: %w", err)
	}

	current.Status = status
	current.JoinedAt = joinedAt
	return &current, nil
}

func studentCountDelta(from, to models.EnrollmentStatus) int {
	switch {
	case from != models.EnrollmentApproved && to == models.EnrollmentApproved:
		return 1
	case from == models.EnrollmentApproved && to == models.EnrollmentRejected:
		return -1
	default:
		return 0
	}
}
