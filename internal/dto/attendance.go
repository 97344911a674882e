package dto

import (
	"time"

	"github.com/noah-isme/attendx-api/internal/models"
)

// AttendanceSummary aggregates presence counts.
type AttendanceSummary struct {
	Total      int `json:"total"`
	Present    int `json:"present"`
	Percentage int `json:"percentage"`
}

// SubjectAttendance is a per-subject summary for a student.
type SubjectAttendance struct {
	Subject       string `json:"subject"`
	ClassroomName string `json:"classroomName"`
	AttendanceSummary
}

// StudentAttendanceReport is the student's view of their own history.
type StudentAttendanceReport struct {
	Records  []models.StudentAttendanceRecord `json:"records"`
	Subjects []SubjectAttendance              `json:"subjects"`
	Overall  AttendanceSummary                `json:"overall"`
}

// StudentSessionStatus is one student's outcome in a past session.
type StudentSessionStatus struct {
	StudentID string                  `json:"studentId"`
	Name      string                  `json:"name"`
	Username  string                  `json:"username"`
	RollNo    *string                 `json:"rollNo,omitempty"`
	Status    models.AttendanceStatus `json:"status"`
}

// SessionHistory is one ended session with resolved per-student presence.
type SessionHistory struct {
	SessionID     string                 `json:"sessionId"`
	ClassroomID   string                 `json:"classroomId"`
	ClassroomName string                 `json:"classroomName"`
	Subject       string                 `json:"subject"`
	StartTime     time.Time              `json:"startTime"`
	EndTime       *time.Time             `json:"endTime,omitempty"`
	Students      []StudentSessionStatus `json:"students"`
	TotalStudents int                    `json:"totalStudents"`
	PresentCount  int                    `json:"presentCount"`
	AbsentCount   int                    `json:"absentCount"`
}

// EducatorStats are headline numbers for the educator dashboard.
type EducatorStats struct {
	TotalClasses    int `json:"totalClasses"`
	TotalClassrooms int `json:"totalClassrooms"`
}

// EducatorAttendanceReport is the educator's view of their session history.
type EducatorAttendanceReport struct {
	Sessions []SessionHistory `json:"sessions"`
	Stats    EducatorStats    `json:"stats"`
}

// AttendanceReport is the role-dependent response of GET /attendance.
type AttendanceReport struct {
	Role     models.UserRole           `json:"role"`
	Student  *StudentAttendanceReport  `json:"student,omitempty"`
	Educator *EducatorAttendanceReport `json:"educator,omitempty"`
}
