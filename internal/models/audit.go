package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionSignup        = "SIGNUP"
	AuditActionLogin         = "LOGIN"
	AuditActionLogout        = "LOGOUT"
	AuditActionTokenRefresh  = "TOKEN_REFRESH"
	AuditActionSessionStart  = "SESSION_START"
	AuditActionSessionAction = "SESSION_ACTION"
	AuditActionClassroomAdd  = "CLASSROOM_CREATE"
	AuditActionEnrollReview  = "ENROLLMENT_REVIEW"
	AuditActionExportRequest = "EXPORT_REQUEST"
	AuditResourceAuth        = "auth"
	AuditResourceLiveSession = "live_session"
	AuditResourceClassroom   = "classroom"
	AuditResourceAttendance  = "attendance"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
