package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendx-api/internal/models"
)

var enrollmentRowColumns = []string{"id", "classroom_id", "student_id", "status", "requested_at", "joined_at"}

func TestReviewEnrollmentApproveIncrementsCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM classroom_students WHERE classroom_id = $1 AND student_id = $2 FOR UPDATE")).
		WithArgs("c1", "s1").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow("e1", "c1", "s1", "PENDING", now, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classroom_students SET status = $2, joined_at = $3 WHERE id = $1")).
		WithArgs("e1", models.EnrollmentApproved, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classrooms SET student_count")).
		WithArgs("c1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment, err := repo.ReviewEnrollment(context.Background(), "c1", "s1", models.EnrollmentApproved, now)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, enrollment.Status)
	require.NotNil(t, enrollment.JoinedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewEnrollmentReapproveKeepsCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	joined := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	now := joined.Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow("e1", "c1", "s1", "APPROVED", joined, joined))
	mock.ExpectExec("UPDATE classroom_students").
		WithArgs("e1", models.EnrollmentApproved, joined).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.ReviewEnrollment(context.Background(), "c1", "s1", models.EnrollmentApproved, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewEnrollmentMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ReviewEnrollment(context.Background(), "c1", "s1", models.EnrollmentRejected, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCountDelta(t *testing.T) {
	assert.Equal(t, 1, studentCountDelta(models.EnrollmentPending, models.EnrollmentApproved))
	assert.Equal(t, 1, studentCountDelta(models.EnrollmentRejected, models.EnrollmentApproved))
	assert.Equal(t, 0, studentCountDelta(models.EnrollmentApproved, models.EnrollmentApproved))
	assert.Equal(t, -1, studentCountDelta(models.EnrollmentApproved, models.EnrollmentRejected))
	assert.Equal(t, 0, studentCountDelta(models.EnrollmentPending, models.EnrollmentRejected))
}

func TestListEnrollmentsExpandsIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	approved := models.EnrollmentApproved
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cs.classroom_id = ANY($1) AND cs.status = $2")).
		WithArgs(pq.Array([]string{"c1", "c2"}), approved).
		WillReturnRows(sqlmock.NewRows([]string{"id", "classroom_id", "student_id", "status", "requested_at", "joined_at", "student_name", "student_username", "student_email", "student_roll_no"}).
			AddRow("e1", "c1", "s1", "APPROVED", now, now, "Sam", "sam", "sam@example.com", "R-1"))

	items, err := repo.ListEnrollments(context.Background(), []string{"c1", "c2"}, &approved)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Sam", items[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEnrollmentsEmptyInput(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	items, err := repo.ListEnrollments(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
