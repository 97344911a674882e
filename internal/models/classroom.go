package models

import "time"

// Classroom is a teaching group owned by a single educator.
type Classroom struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Subject      string    `db:"subject" json:"subject"`
	ClassCode    string    `db:"class_code" json:"classCode"`
	JoinLink     string    `db:"join_link" json:"joinLink"`
	QRCodeURL    *string   `db:"qr_code_url" json:"qrCodeUrl,omitempty"`
	EducatorID   string    `db:"educator_id" json:"educatorId"`
	StudentCount int       `db:"student_count" json:"studentCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// ClassroomSummary is the compact classroom projection embedded in sessions and reports.
type ClassroomSummary struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Subject    string `db:"subject" json:"subject"`
	EducatorID string `db:"educator_id" json:"educatorId"`
}

// EnrollmentStatus tracks a student's membership request.
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "PENDING"
	EnrollmentApproved EnrollmentStatus = "APPROVED"
	EnrollmentRejected EnrollmentStatus = "REJECTED"
)

// Valid reports whether the status is known.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentPending, EnrollmentApproved, EnrollmentRejected:
		return true
	default:
		return false
	}
}

// Enrollment links a student to a classroom (classroom_students).
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	ClassroomID string           `db:"classroom_id" json:"classroomId"`
	StudentID   string           `db:"student_id" json:"studentId"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	RequestedAt time.Time        `db:"requested_at" json:"requestedAt"`
	JoinedAt    *time.Time       `db:"joined_at" json:"joinedAt,omitempty"`
}

// EnrollmentDetail enriches an enrollment with the student's public profile.
type EnrollmentDetail struct {
	Enrollment
	StudentName     string  `db:"student_name" json:"studentName"`
	StudentUsername string  `db:"student_username" json:"studentUsername"`
	StudentEmail    string  `db:"student_email" json:"studentEmail"`
	StudentRollNo   *string `db:"student_roll_no" json:"studentRollNo,omitempty"`
}

// StudentClassroom is a classroom as seen from a student's enrollment.
type StudentClassroom struct {
	Classroom
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollmentStatus"`
	RequestedAt      time.Time        `db:"requested_at" json:"requestedAt"`
	JoinedAt         *time.Time       `db:"joined_at" json:"joinedAt,omitempty"`
	EducatorName     string           `db:"educator_name" json:"educatorName"`
}
