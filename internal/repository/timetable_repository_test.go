package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendx-api/internal/models"
)

func TestCreateTimetableWithSlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetables").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	timetable := &models.Timetable{UserID: "u1", Name: "Week", Slots: []models.TimetableSlot{
		{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", Subject: "Math"},
		{Day: models.Monday, StartTime: "09:00", EndTime: "09:15", Subject: "Break", IsBreak: true},
	}}
	require.NoError(t, repo.Create(context.Background(), timetable))
	assert.NotEmpty(t, timetable.ID)
	for _, slot := range timetable.Slots {
		assert.Equal(t, timetable.ID, slot.TimetableID)
		assert.NotEmpty(t, slot.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTimetableRollsBackOnSlotFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetables").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Timetable{UserID: "u1", Name: "Week", Slots: []models.TimetableSlot{{Day: models.Friday, StartTime: "10:00", EndTime: "11:00", Subject: "Art"}}})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSlotMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_slots WHERE id = $1 AND timetable_id = $2")).
		WithArgs("slot", "tt").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteSlot(context.Background(), "tt", "slot"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
