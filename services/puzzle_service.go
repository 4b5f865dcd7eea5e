package services

import (
	"errors"
	"time"

	"mathclub/models"

	"gorm.io/gorm"
)

var (
	ErrPuzzleNotFound     = errors.New("puzzle not found")
	ErrDeleteActivePuzzle = errors.New("cannot delete an active puzzle; deactivate it first")
	ErrInvalidStatus      = errors.New("invalid puzzle status")
)

type PuzzleService struct {
	db *gorm.DB
}

func NewPuzzleService(db *gorm.DB) *PuzzleService {
	return &PuzzleService{db: db}
}

type CreatePuzzleRequest struct {
	Title         string     `json:"title" binding:"required"`
	Prompt        string     `json:"prompt" binding:"required"`
	Image         string     `json:"image"`
	CorrectAnswer string     `json:"correct_answer"`
	Solution      string     `json:"solution"`
	Difficulty    int        `json:"difficulty" binding:"required,min=1,max=5"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// UpdatePuzzleRequest distinguishes "leave unchanged" (field absent) from
// "clear this field" (field name listed in Clear).
type UpdatePuzzleRequest struct {
	Title         *string    `json:"title"`
	Prompt        *string    `json:"prompt"`
	Image         *string    `json:"image"`
	CorrectAnswer *string    `json:"correct_answer"`
	Solution      *string    `json:"solution"`
	Difficulty    *int       `json:"difficulty" binding:"omitempty,min=1,max=5"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Clear         []string   `json:"clear"`
}

func (s *PuzzleService) CreatePuzzle(createdBy uint, req *CreatePuzzleRequest) (*models.Puzzle, error) {
	puzzle := models.Puzzle{
		Title:         req.Title,
		Prompt:        req.Prompt,
		Image:         req.Image,
		CorrectAnswer: req.CorrectAnswer,
		Solution:      req.Solution,
		Difficulty:    req.Difficulty,
		Status:        models.PuzzleBacklog,
		ExpiresAt:     req.ExpiresAt,
		CreatedBy:     createdBy,
	}
	if err := s.db.Create(&puzzle).Error; err != nil {
		return nil, err
	}
	return &puzzle, nil
}

func (s *PuzzleService) GetPuzzle(puzzleID uint) (*models.Puzzle, error) {
	var puzzle models.Puzzle
	if err := s.db.First(&puzzle, puzzleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPuzzleNotFound
		}
		return nil, err
	}
	return &puzzle, nil
}

func (s *PuzzleService) GetPuzzles() ([]models.Puzzle, error) {
	var puzzles []models.Puzzle
	err := s.db.Order("created_at DESC").Find(&puzzles).Error
	return puzzles, err
}

// GetPuzzlesByStatus lists puzzles in one lifecycle state, most recent
// first. Archived puzzles order by when they were archived, the rest by
// when they were created.
func (s *PuzzleService) GetPuzzlesByStatus(status string) ([]models.Puzzle, error) {
	if !models.ValidPuzzleStatus(status) {
		return nil, ErrInvalidStatus
	}
	order := "created_at DESC"
	if status == models.PuzzleArchived {
		order = "archived_at DESC"
	}
	var puzzles []models.Puzzle
	err := s.db.Where("status = ?", status).Order(order).Find(&puzzles).Error
	return puzzles, err
}

// GetActivePuzzle returns the current problem of the week, or nil when none
// is active. If the single-active invariant has been violated it returns an
// arbitrary first match rather than failing.
func (s *PuzzleService) GetActivePuzzle() (*models.Puzzle, error) {
	var puzzle models.Puzzle
	err := s.db.Where("status = ?", models.PuzzleActive).First(&puzzle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &puzzle, nil
}

// ActivatePuzzle promotes one puzzle to active and archives every other
// active puzzle in the same transaction, so at most one puzzle is active
// once it commits.
func (s *PuzzleService) ActivatePuzzle(puzzleID uint) (*models.Puzzle, error) {
	puzzle, err := s.GetPuzzle(puzzleID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Puzzle{}).
			Where("status = ? AND id <> ?", models.PuzzleActive, puzzleID).
			Updates(map[string]interface{}{
				"status":      models.PuzzleArchived,
				"archived_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(puzzle).Updates(map[string]interface{}{
			"status":       models.PuzzleActive,
			"activated_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetPuzzle(puzzleID)
}

// ArchivePuzzle retires a puzzle, stamping when it left rotation.
func (s *PuzzleService) ArchivePuzzle(puzzleID uint) (*models.Puzzle, error) {
	puzzle, err := s.GetPuzzle(puzzleID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.db.Model(puzzle).Updates(map[string]interface{}{
		"status":      models.PuzzleArchived,
		"archived_at": now,
	}).Error; err != nil {
		return nil, err
	}
	return s.GetPuzzle(puzzleID)
}

// simple optional fields that may be cleared through UpdatePuzzleRequest.Clear
var clearablePuzzleFields = map[string]string{
	"image":          "image",
	"correct_answer": "correct_answer",
	"solution":       "solution",
	"expires_at":     "expires_at",
}

func (s *PuzzleService) UpdatePuzzle(puzzleID uint, req *UpdatePuzzleRequest) (*models.Puzzle, error) {
	puzzle, err := s.GetPuzzle(puzzleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Prompt != nil {
		updates["prompt"] = *req.Prompt
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.CorrectAnswer != nil {
		updates["correct_answer"] = *req.CorrectAnswer
	}
	if req.Solution != nil {
		updates["solution"] = *req.Solution
	}
	if req.Difficulty != nil {
		updates["difficulty"] = *req.Difficulty
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	for _, name := range req.Clear {
		if column, ok := clearablePuzzleFields[name]; ok {
			if column == "expires_at" {
				updates[column] = gorm.Expr("NULL")
			} else {
				updates[column] = ""
			}
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(puzzle).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetPuzzle(puzzleID)
}

// DeletePuzzle removes a puzzle that is not in rotation; deleting the
// active puzzle is a domain error and mutates nothing. Submissions are not
// cascade-deleted.
func (s *PuzzleService) DeletePuzzle(puzzleID uint) error {
	puzzle, err := s.GetPuzzle(puzzleID)
	if err != nil {
		return err
	}
	if puzzle.Status == models.PuzzleActive {
		return ErrDeleteActivePuzzle
	}
	return s.db.Delete(&models.Puzzle{}, puzzleID).Error
}
