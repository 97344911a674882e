package dto

import "github.com/noah-isme/attendx-api/internal/models"

// CreateClassroomRequest captures POST /classrooms payload.
type CreateClassroomRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Subject string `json:"subject" validate:"required,min=2,max=100"`
}

// ReviewEnrollmentRequest captures PATCH /classrooms/:id/students payload.
type ReviewEnrollmentRequest struct {
	StudentID string                  `json:"studentId" validate:"required"`
	Status    models.EnrollmentStatus `json:"status" validate:"required"`
}

// EducatorClassroom is an owned classroom with its approved students.
type EducatorClassroom struct {
	models.Classroom
	Students []models.EnrollmentDetail `json:"students"`
}

// ClassroomList is the role-dependent response of GET /classrooms.
type ClassroomList struct {
	Role     models.UserRole           `json:"role"`
	Owned    []EducatorClassroom       `json:"owned,omitempty"`
	Enrolled []models.StudentClassroom `json:"enrolled,omitempty"`
}

// ClassroomDetail is a classroom with every enrollment regardless of status.
type ClassroomDetail struct {
	models.Classroom
	Enrollments []models.EnrollmentDetail `json:"enrollments"`
}
