package models

import "time"

// AttendanceStatus is the authoritative per-session outcome.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// Attendance is the final record for one (session, student) pair.
type Attendance struct {
	ID            string           `db:"id" json:"id"`
	LiveSessionID string           `db:"live_session_id" json:"liveSessionId"`
	StudentID     string           `db:"student_id" json:"studentId"`
	Status        AttendanceStatus `db:"status" json:"status"`
	MarkedAt      time.Time        `db:"marked_at" json:"markedAt"`
}

// StudentAttendanceRecord joins an attendance row with its session and classroom.
type StudentAttendanceRecord struct {
	Attendance
	SessionStartTime time.Time  `db:"session_start_time" json:"sessionStartTime"`
	SessionEndTime   *time.Time `db:"session_end_time" json:"sessionEndTime,omitempty"`
	ClassroomID      string     `db:"classroom_id" json:"classroomId"`
	ClassroomName    string     `db:"classroom_name" json:"classroomName"`
	Subject          string     `db:"subject" json:"subject"`
}

// EndedSession is an ENDED session row used by the educator history.
type EndedSession struct {
	ID            string     `db:"id" json:"id"`
	ClassroomID   string     `db:"classroom_id" json:"classroomId"`
	ClassroomName string     `db:"classroom_name" json:"classroomName"`
	Subject       string     `db:"subject" json:"subject"`
	StartTime     time.Time  `db:"start_time" json:"startTime"`
	EndTime       *time.Time `db:"end_time" json:"endTime,omitempty"`
}

// SessionPresence is a presence marker from either attendance source.
type SessionPresence struct {
	LiveSessionID string `db:"live_session_id"`
	StudentID     string `db:"student_id"`
}

// ClassroomRosterEntry is an approved student of a classroom.
type ClassroomRosterEntry struct {
	ClassroomID string  `db:"classroom_id"`
	StudentID   string  `db:"student_id"`
	Name        string  `db:"name"`
	Username    string  `db:"username"`
	RollNo      *string `db:"roll_no"`
}
