package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	DisplayName  string `json:"display_name" gorm:"not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"not null;default:'user'"` // user, admin, superadmin

	EmailVerified bool `json:"email_verified" gorm:"not null;default:false"`

	// Aggregate submission stats, fully recomputed after each grading pass.
	TotalSubmissions   int     `json:"total_submissions" gorm:"not null;default:0"`
	CorrectSubmissions int     `json:"correct_submissions" gorm:"not null;default:0"`
	AverageScore       float64 `json:"average_score" gorm:"not null;default:0"` // 0-100 scale

	FreezeSubmissions bool `json:"freeze_submissions" gorm:"not null;default:false"`
	AccountDisabled   bool `json:"account_disabled" gorm:"not null;default:false"`

	LastLoginAt *time.Time     `json:"last_login_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsAdmin reports whether the user may manage puzzles and grade submissions.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// IsSuperAdmin reports whether the user may manage other users' accounts.
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin || role == RoleSuperAdmin
}
