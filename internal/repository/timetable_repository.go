package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendx-api/internal/models"
)

const slotColumns = `id, timetable_id, day, start_time, end_time, subject, classroom_id, is_break, break_duration`

// TimetableRepository persists personal timetables and their slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListByUser returns the user's timetables without slots.
func (r *TimetableRepository) ListByUser(ctx context.Context, userID string) ([]models.Timetable, error) {
	const query = `SELECT id, user_id, name, created_at FROM timetables WHERE user_id = $1 ORDER BY created_at ASC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, userID); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindOwned returns a timetable only when it belongs to userID, else sql.ErrNoRows.
func (r *TimetableRepository) FindOwned(ctx context.Context, id, userID string) (*models.Timetable, error) {
	const query = `SELECT id, user_id, name, created_at FROM timetables WHERE id = $1 AND user_id = $2`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable: %w", err)
	}
	return &timetable, nil
}

// ListSlots returns slots of the given timetables ordered by weekday then start time.
func (r *TimetableRepository) ListSlots(ctx context.Context, timetableIDs []string) ([]models.TimetableSlot, error) {
	if len(timetableIDs) == 0 {
		return []models.TimetableSlot{}, nil
	}
	query := `SELECT ` + slotColumns + ` FROM timetable_slots WHERE timetable_id = ANY($1)
ORDER BY array_position(ARRAY['MON','TUE','WED','THU','FRI','SAT','SUN'], day), start_time ASC`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(timetableIDs)); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// Create stores a timetable together with its initial slots in one transaction.
func (r *TimetableRepository) Create(ctx context.Context, timetable *models.Timetable) (err error) {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO timetables (id, user_id, name, created_at) VALUES (:id, :user_id, :name, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	for i := range timetable.Slots {
		timetable.Slots[i].TimetableID = timetable.ID
		if err = insertSlot(ctx, tx, &timetable.Slots[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable: %w", err)
	}
	return nil
}

// AddSlot inserts a slot into an existing timetable.
func (r *TimetableRepository) AddSlot(ctx context.Context, slot *models.TimetableSlot) error {
	return insertSlot(ctx, r.db, slot)
}

// DeleteSlot removes a slot from a timetable, returning sql.ErrNoRows when nothing matched.
func (r *TimetableRepository) DeleteSlot(ctx context.Context, timetableID, slotID string) error {
	const query = `DELETE FROM timetable_slots WHERE id = $1 AND timetable_id = $2`
	res, err := r.db.ExecContext(ctx, query, slotID, timetableID)
	if err != nil {
		return fmt.Errorf("delete timetable slot: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func insertSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	query := `INSERT INTO timetable_slots (` + slotColumns + `) VALUES (:id, :timetable_id, :day, :start_time, :end_time, :subject, :classroom_id, :is_break, :break_duration)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slot); err != nil {
		return fmt.Errorf("create timetable slot: %w", err)
	}
	return nil
}
