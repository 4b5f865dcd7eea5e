package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mathclub/models"
	"mathclub/services"

	"github.com/gin-gonic/gin"
)

type PuzzleHandler struct {
	puzzleService *services.PuzzleService
	hub           *services.Hub
}

func NewPuzzleHandler(puzzleService *services.PuzzleService, hub *services.Hub) *PuzzleHandler {
	return &PuzzleHandler{
		puzzleService: puzzleService,
		hub:           hub,
	}
}

func (h *PuzzleHandler) notifyPuzzleChange() {
	if h.hub != nil {
		h.hub.PublishSnapshot(services.TopicPuzzles)
		h.hub.PublishSnapshot(services.TopicActivePuzzle)
	}
}

func (h *PuzzleHandler) CreatePuzzle(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req services.CreatePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	puzzle, err := h.puzzleService.CreatePuzzle(userID.(uint), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notifyPuzzleChange()
	c.JSON(http.StatusCreated, puzzle)
}

func (h *PuzzleHandler) GetPuzzles(c *gin.Context) {
	if status := c.Query("status"); status != "" {
		puzzles, err := h.puzzleService.GetPuzzlesByStatus(status)
		if err != nil {
			if errors.Is(err, services.ErrInvalidStatus) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list puzzles"})
			return
		}
		c.JSON(http.StatusOK, puzzles)
		return
	}

	puzzles, err := h.puzzleService.GetPuzzles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list puzzles"})
		return
	}
	c.JSON(http.StatusOK, puzzles)
}

// GetActivePuzzle serves the current problem of the week together with the
// derived expiry state the submission form needs.
func (h *PuzzleHandler) GetActivePuzzle(c *gin.Context) {
	puzzle, err := h.puzzleService.GetActivePuzzle()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load active puzzle"})
		return
	}
	if puzzle == nil {
		c.JSON(http.StatusOK, gin.H{"puzzle": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"puzzle":  puzzle,
		"expired": puzzle.Expired(time.Now()),
	})
}

func (h *PuzzleHandler) GetArchivedPuzzles(c *gin.Context) {
	puzzles, err := h.puzzleService.GetPuzzlesByStatus(models.PuzzleArchived)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list archived puzzles"})
		return
	}
	c.JSON(http.StatusOK, puzzles)
}

func (h *PuzzleHandler) GetPuzzleByID(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	puzzle, err := h.puzzleService.GetPuzzle(puzzleID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Puzzle not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"puzzle":  puzzle,
		"expired": puzzle.Expired(time.Now()),
	})
}

func (h *PuzzleHandler) UpdatePuzzle(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	var req services.UpdatePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	puzzle, err := h.puzzleService.UpdatePuzzle(puzzleID, &req)
	if err != nil {
		if errors.Is(err, services.ErrPuzzleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notifyPuzzleChange()
	c.JSON(http.StatusOK, puzzle)
}

func (h *PuzzleHandler) ActivatePuzzle(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	puzzle, err := h.puzzleService.ActivatePuzzle(puzzleID)
	if err != nil {
		if errors.Is(err, services.ErrPuzzleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notifyPuzzleChange()
	c.JSON(http.StatusOK, puzzle)
}

func (h *PuzzleHandler) ArchivePuzzle(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	puzzle, err := h.puzzleService.ArchivePuzzle(puzzleID)
	if err != nil {
		if errors.Is(err, services.ErrPuzzleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notifyPuzzleChange()
	c.JSON(http.StatusOK, puzzle)
}

func (h *PuzzleHandler) DeletePuzzle(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	if err := h.puzzleService.DeletePuzzle(puzzleID); err != nil {
		switch {
		case errors.Is(err, services.ErrPuzzleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrDeleteActivePuzzle):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete puzzle"})
		}
		return
	}

	h.notifyPuzzleChange()
	c.JSON(http.StatusOK, gin.H{"message": "Puzzle deleted successfully"})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	return uint(id), err
}
