package models

import "time"

// Weekday is the three-letter day code used by timetable slots.
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

var weekdayOrder = map[Weekday]int{
	Monday: 1, Tuesday: 2, Wednesday: 3, Thursday: 4, Friday: 5, Saturday: 6, Sunday: 7,
}

// Valid reports whether the day is one of MON..SUN.
func (d Weekday) Valid() bool {
	_, ok := weekdayOrder[d]
	return ok
}

// Order returns the 1-based position of the day in the week, 0 when unknown.
func (d Weekday) Order() int {
	return weekdayOrder[d]
}

// Timetable is a personal weekly schedule.
type Timetable struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"userId"`
	Name      string          `db:"name" json:"name"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	Slots     []TimetableSlot `db:"-" json:"slots"`
}

// TimetableSlot is one entry of a timetable.
type TimetableSlot struct {
	ID            string  `db:"id" json:"id"`
	TimetableID   string  `db:"timetable_id" json:"timetableId"`
	Day           Weekday `db:"day" json:"day"`
	StartTime     string  `db:"start_time" json:"startTime"`
	EndTime       string  `db:"end_time" json:"endTime"`
	Subject       string  `db:"subject" json:"subject"`
	ClassroomID   *string `db:"classroom_id" json:"classroomId,omitempty"`
	IsBreak       bool    `db:"is_break" json:"isBreak"`
	BreakDuration *int    `db:"break_duration" json:"breakDuration,omitempty"`
}
