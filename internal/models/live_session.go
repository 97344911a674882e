package models

import "time"

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	SessionLive      SessionStatus = "LIVE"
	SessionEnded     SessionStatus = "ENDED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed besides idempotent End.
func (s SessionStatus) Terminal() bool {
	return s == SessionEnded || s == SessionCancelled
}

// AttendeeStatus is the per-session outcome stored on the attendee row.
type AttendeeStatus string

const (
	AttendeePending AttendeeStatus = "PENDING"
	AttendeePresent AttendeeStatus = "PRESENT"
	AttendeeAbsent  AttendeeStatus = "ABSENT"
)

// LiveSession is one occurrence of a class in real time.
type LiveSession struct {
	ID              string        `db:"id" json:"id"`
	ClassroomID     string        `db:"classroom_id" json:"classroomId"`
	Status          SessionStatus `db:"status" json:"status"`
	StartTime       time.Time     `db:"start_time" json:"startTime"`
	EndTime         *time.Time    `db:"end_time" json:"endTime,omitempty"`
	PortalOpen      bool          `db:"portal_open" json:"portalOpen"`
	PortalDuration  int           `db:"portal_duration" json:"portalDuration"`
	PortalCloseTime *time.Time    `db:"portal_close_time" json:"portalCloseTime,omitempty"`
	AdmittedCount   int           `db:"admitted_count" json:"admittedCount"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
}

// SessionWithOwner carries the owning classroom so ownership checks need no second lookup.
type SessionWithOwner struct {
	LiveSession
	EducatorID       string `db:"educator_id" json:"educatorId"`
	ClassroomName    string `db:"classroom_name" json:"classroomName"`
	ClassroomSubject string `db:"classroom_subject" json:"classroomSubject"`
}

// OwnedBy reports whether the session's classroom belongs to the educator.
func (s *SessionWithOwner) OwnedBy(userID string) bool {
	return s != nil && userID != "" && s.EducatorID == userID
}

// SessionListItem is a session row enriched for list views.
type SessionListItem struct {
	LiveSession
	ClassroomName    string `db:"classroom_name" json:"classroomName"`
	ClassroomSubject string `db:"classroom_subject" json:"classroomSubject"`
	AttendeeCount    int    `db:"attendee_count" json:"attendeeCount"`
}

// Attendee is a student's participation record within one live session.
type Attendee struct {
	ID               string         `db:"id" json:"id"`
	LiveSessionID    string         `db:"live_session_id" json:"liveSessionId"`
	StudentID        string         `db:"student_id" json:"studentId"`
	JoinedAt         time.Time      `db:"joined_at" json:"joinedAt"`
	AdmittedAt       *time.Time     `db:"admitted_at" json:"admittedAt,omitempty"`
	AttendanceCalled bool           `db:"attendance_called" json:"attendanceCalled"`
	CalledAt         *time.Time     `db:"called_at" json:"calledAt,omitempty"`
	AttendanceStatus AttendeeStatus `db:"attendance_status" json:"attendanceStatus"`
}

// Admitted reports whether the educator has admitted the attendee.
func (a *Attendee) Admitted() bool {
	return a != nil && a.AdmittedAt != nil
}

// AttendeeDetail enriches an attendee with the student's public profile.
type AttendeeDetail struct {
	Attendee
	StudentName     string  `db:"student_name" json:"studentName"`
	StudentUsername string  `db:"student_username" json:"studentUsername"`
	StudentRollNo   *string `db:"student_roll_no" json:"studentRollNo,omitempty"`
}
