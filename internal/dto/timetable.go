package dto

import "github.com/noah-isme/attendx-api/internal/models"

// SlotRequest describes one timetable slot in create payloads.
type SlotRequest struct {
	Day           models.Weekday `json:"day" validate:"required,weekday"`
	StartTime     string         `json:"startTime" validate:"required,clock"`
	EndTime       string         `json:"endTime" validate:"required,clock"`
	Subject       string         `json:"subject" validate:"required,max=100"`
	ClassroomID   *string        `json:"classroomId,omitempty"`
	IsBreak       bool           `json:"isBreak"`
	BreakDuration *int           `json:"breakDuration,omitempty" validate:"omitempty,min=0"`
}

// CreateTimetableRequest captures POST /timetables payload.
type CreateTimetableRequest struct {
	Name  string        `json:"name" validate:"omitempty,max=100"`
	Slots []SlotRequest `json:"slots" validate:"dive"`
}
