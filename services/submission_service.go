package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"mathclub/models"

	"gorm.io/gorm"
)

const LeaderboardSize = 50

var (
	ErrEmptyAnswer        = errors.New("answer must not be empty")
	ErrPuzzleNotActive    = errors.New("this puzzle is not open for submissions")
	ErrPuzzleExpired      = errors.New("the submission window for this puzzle has closed")
	ErrSubmissionsFrozen  = errors.New("submissions are currently disabled for this account")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidGrade       = errors.New("grade must be between 1 and 5")
)

type SubmissionService struct {
	db *gorm.DB
}

func NewSubmissionService(db *gorm.DB) *SubmissionService {
	return &SubmissionService{db: db}
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type GradeSubmissionRequest struct {
	Grade int `json:"grade" binding:"required,min=1,max=5"`
}

// SubmitResult reports whether the call created a record or matched an
// earlier submission by the same user for the same puzzle.
type SubmitResult struct {
	Submission *models.Submission `json:"submission"`
	Duplicate  bool               `json:"duplicate"`
}

// Submit records one answer per user per puzzle. A repeat call is an
// idempotent duplicate: the prior record is returned and nothing is
// written. The composite unique index backstops the check under
// concurrent double-submission.
func (s *SubmissionService) Submit(puzzleID, userID uint, req *SubmitAnswerRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return nil, ErrEmptyAnswer
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.AccountDisabled {
		return nil, ErrAccountDisabled
	}
	if user.FreezeSubmissions {
		return nil, ErrSubmissionsFrozen
	}

	var puzzle models.Puzzle
	if err := s.db.First(&puzzle, puzzleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPuzzleNotFound
		}
		return nil, err
	}
	if puzzle.Status != models.PuzzleActive {
		return nil, ErrPuzzleNotActive
	}
	if puzzle.Expired(time.Now()) {
		return nil, ErrPuzzleExpired
	}

	if existing, err := s.GetUserSubmission(puzzleID, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return &SubmitResult{Submission: existing, Duplicate: true}, nil
	}

	submission := models.Submission{
		PuzzleID:    puzzleID,
		UserID:      userID,
		PuzzleTitle: puzzle.Title,
		UserName:    user.DisplayName,
		UserEmail:   user.Email,
		Answer:      req.Answer,
	}
	if err := s.db.Create(&submission).Error; err != nil {
		// Lost the race against a concurrent submit by the same user;
		// the unique index kept the invariant, so return the winner.
		if existing, lookupErr := s.GetUserSubmission(puzzleID, userID); lookupErr == nil && existing != nil {
			return &SubmitResult{Submission: existing, Duplicate: true}, nil
		}
		return nil, err
	}

	if err := s.RecomputeUserStats(userID); err != nil {
		return nil, err
	}
	return &SubmitResult{Submission: &submission}, nil
}

// GetUserSubmission returns the user's submission for a puzzle, or nil.
func (s *SubmissionService) GetUserSubmission(puzzleID, userID uint) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.Where("puzzle_id = ? AND user_id = ?", puzzleID, userID).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetPuzzleSubmissions lists every submission for a puzzle, newest first.
func (s *SubmissionService) GetPuzzleSubmissions(puzzleID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.Where("puzzle_id = ?", puzzleID).Order("created_at DESC").Find(&submissions).Error
	return submissions, err
}

// GetUserSubmissions lists one user's submission history, newest first.
func (s *SubmissionService) GetUserSubmissions(userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&submissions).Error
	return submissions, err
}

// GetLeaderboard returns the newest submissions for a puzzle, truncated to
// the leaderboard page size.
func (s *SubmissionService) GetLeaderboard(puzzleID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.Where("puzzle_id = ?", puzzleID).
		Order("created_at DESC").
		Limit(LeaderboardSize).
		Find(&submissions).Error
	return submissions, err
}

// GetAllSubmissions lists every submission in the system, newest first.
func (s *SubmissionService) GetAllSubmissions() ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.Order("created_at DESC").Find(&submissions).Error
	return submissions, err
}

// Grade scores a submission on the 1-5 scale and refreshes the submitter's
// aggregate stats. Re-grading overwrites the previous grade.
func (s *SubmissionService) Grade(submissionID uint, grade int, gradedBy uint) (*models.Submission, error) {
	if grade < 1 || grade > 5 {
		return nil, ErrInvalidGrade
	}

	var submission models.Submission
	if err := s.db.First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(&submission).Updates(map[string]interface{}{
		"grade":     grade,
		"graded_at": now,
		"graded_by": gradedBy,
	}).Error; err != nil {
		return nil, err
	}
	submission.Grade = &grade
	submission.GradedAt = &now
	submission.GradedBy = &gradedBy

	if err := s.RecomputeUserStats(submission.UserID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// RecomputeUserStats rereads all of a user's submissions and rewrites the
// aggregate counters. Full recompute, not an incremental update: grading is
// rare and idempotent overwrites keep this simple.
func (s *SubmissionService) RecomputeUserStats(userID uint) error {
	submissions, err := s.GetUserSubmissions(userID)
	if err != nil {
		return err
	}

	total := len(submissions)
	graded := 0
	sum := 0
	for _, sub := range submissions {
		if sub.Graded() {
			graded++
			sum += *sub.Grade
		}
	}

	average := 0.0
	if graded > 0 {
		// 1-5 grades mapped onto a 0-100 scale, rounded to 2 decimals.
		average = math.Round(float64(sum)/float64(graded)*20*100) / 100
	}

	return s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"total_submissions":   total,
		"correct_submissions": graded,
		"average_score":       average,
	}).Error
}
