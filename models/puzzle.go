package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PuzzleBacklog  = "backlog"
	PuzzleActive   = "active"
	PuzzleArchived = "archived"
)

type Puzzle struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Title         string `json:"title" gorm:"not null"`
	Prompt        string `json:"prompt" gorm:"not null"`
	Image         string `json:"image,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Solution      string `json:"solution,omitempty"`
	Difficulty    int    `json:"difficulty" gorm:"not null;default:1"` // 1-5
	Status        string `json:"status" gorm:"not null;default:'backlog';index"`

	// ExpiresAt closes the puzzle for new submissions. A past deadline
	// does not change Status; expiry is evaluated at read time.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedBy   uint           `json:"created_by" gorm:"not null"`
	ActivatedAt *time.Time     `json:"activated_at,omitempty"`
	ArchivedAt  *time.Time     `json:"archived_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Expired reports whether the submission window has closed. Puzzles with
// no deadline never expire.
func (p *Puzzle) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

func ValidPuzzleStatus(status string) bool {
	return status == PuzzleBacklog || status == PuzzleActive || status == PuzzleArchived
}
