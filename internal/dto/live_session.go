package dto

import (
	"time"

	"github.com/noah-isme/attendx-api/internal/models"
)

// Live session actions accepted by PATCH /live/:id.
const (
	ActionEnd            = "end"
	ActionCancel         = "cancel"
	ActionOpenPortal     = "open-portal"
	ActionClosePortal    = "close-portal"
	ActionJoin           = "join"
	ActionAdmit          = "admit"
	ActionCallAttendance = "call-attendance"

	// AdmitAll admits every attendee still waiting.
	AdmitAll = "all"
)

// StartSessionRequest captures POST /live payload.
type StartSessionRequest struct {
	ClassroomID    string `json:"classroomId" validate:"required"`
	PortalDuration *int   `json:"portalDuration,omitempty"`
}

// SessionActionRequest captures PATCH /live/:id payload.
type SessionActionRequest struct {
	Action         string `json:"action" validate:"required"`
	StudentID      string `json:"studentId,omitempty"`
	PortalDuration *int   `json:"portalDuration,omitempty"`
}

// SessionDetail is the full view of one session used by polling clients.
type SessionDetail struct {
	models.LiveSession
	Classroom       models.ClassroomSummary `json:"classroom"`
	Attendees       []models.AttendeeDetail `json:"attendees"`
	AttendeeCount   int                     `json:"attendeeCount"`
	AttendanceCount int                     `json:"attendanceCount"`
}

// AdmitResult reports who was admitted by an admit action.
type AdmitResult struct {
	SessionID     string   `json:"sessionId"`
	Admitted      []string `json:"admitted,omitempty"`
	Count         int      `json:"count"`
	AdmittedCount int      `json:"admittedCount"`
}

// CallAttendanceResult confirms a successful self-declared presence.
type CallAttendanceResult struct {
	SessionID string                  `json:"sessionId"`
	StudentID string                  `json:"studentId"`
	Status    models.AttendanceStatus `json:"status"`
	MarkedAt  time.Time               `json:"markedAt"`
}

// EndSessionResult summarises reconciliation after a session ends.
type EndSessionResult struct {
	Session       models.LiveSession `json:"session"`
	EnrolledCount int                `json:"enrolledCount"`
	PresentCount  int                `json:"presentCount"`
	AbsentCount   int                `json:"absentCount"`
	MarkedAbsent  int64              `json:"attendeesMarkedAbsent"`
}
