// Package model provides the database models for the unibot backend.
package model

import (
	"strings"
	"time"

	"github.com/kart-io/unibot/internal/pkg/authz"
)

// User represents an account in the database.
type User struct {
	ID           uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FullName     string     `json:"full_name" gorm:"size:120;not null"`
	Email        string     `json:"email" gorm:"size:128;not null;uniqueIndex:uk_email"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Role         authz.Role `json:"role" gorm:"size:50;not null;default:'STUDENT';index:idx_role"`

	// IsApproved gates login; student self-signups start unapproved.
	IsApproved bool `json:"is_approved" gorm:"default:false"`
	// IsBlocked also gates login and is toggled from the admin panel.
	IsBlocked bool `json:"is_blocked" gorm:"default:false"`

	// Academic / personal fields.
	Department string `json:"department" gorm:"size:120"`
	Semester   string `json:"semester" gorm:"size:50"`
	CNIC       string `json:"cnic" gorm:"size:50"`
	Contact    string `json:"contact" gorm:"size:50"`

	// Employment / identity. StudentID and EmployeeID must be unique when
	// present; emptiness is common so uniqueness is enforced in the service
	// layer, not by a DB constraint.
	Position   string `json:"position" gorm:"size:120"`
	StudentID  string `json:"student_id" gorm:"size:50;index:idx_student_id"`
	EmployeeID string `json:"employee_id" gorm:"size:50;index:idx_employee_id"`

	// Relative paths under the upload root, never raw bytes.
	ProfileImagePath     string `json:"profile_image_path" gorm:"size:255"`
	StudentCardImagePath string `json:"student_card_image_path" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (u *User) TableName() string {
	return "users"
}

// FirstName returns the first space-separated part of the full name.
func (u *User) FirstName() string {
	parts := strings.Fields(u.FullName)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName returns everything after the first name.
func (u *User) LastName() string {
	parts := strings.Fields(u.FullName)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

// UserList contains a list of users.
type UserList struct {
	Items []*User `json:"items"`
}
