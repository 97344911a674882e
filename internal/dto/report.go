package dto

import (
	"time"

	"github.com/noah-isme/attendx-api/internal/models"
)

// ExportRequest captures POST /attendance/exports payload.
type ExportRequest struct {
	Format      models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	ClassroomID *string             `json:"classroomId,omitempty"`
}

// ReportJobResponse is returned after enqueueing an export.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}
