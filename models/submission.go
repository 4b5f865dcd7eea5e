package models

import (
	"time"

	"gorm.io/gorm"
)

type Submission struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	PuzzleID uint `json:"puzzle_id" gorm:"not null;uniqueIndex:idx_puzzle_user"`
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_puzzle_user"`

	// Denormalized for leaderboard and grading views.
	PuzzleTitle string `json:"puzzle_title" gorm:"not null"`
	UserName    string `json:"user_name" gorm:"not null"`
	UserEmail   string `json:"user_email" gorm:"not null"`

	Answer string `json:"answer" gorm:"not null"`

	Grade    *int       `json:"grade,omitempty"` // 1-5, set by an admin
	GradedAt *time.Time `json:"graded_at,omitempty"`
	GradedBy *uint      `json:"graded_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// No foreign-key associations on purpose: deleting a puzzle keeps its
// submissions, which still carry the denormalized title.

// Graded reports whether an admin has scored this submission.
func (s *Submission) Graded() bool {
	return s.Grade != nil
}
