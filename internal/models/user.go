package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleEducator UserRole = "EDUCATOR"
	RoleStudent  UserRole = "STUDENT"
)

// Valid reports whether the role is one AttendX recognises.
func (r UserRole) Valid() bool {
	return r == RoleEducator || r == RoleStudent
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	RollNo       *string    `db:"roll_no" json:"rollNo,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in other resources.
type UserSummary struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Username string  `db:"username" json:"username"`
	RollNo   *string `db:"roll_no" json:"rollNo,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
