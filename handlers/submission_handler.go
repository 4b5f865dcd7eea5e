package handlers

import (
	"errors"
	"net/http"

	"mathclub/services"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
	hub               *services.Hub
}

func NewSubmissionHandler(submissionService *services.SubmissionService, hub *services.Hub) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		hub:               hub,
	}
}

// SubmitAnswer records the caller's answer for a puzzle. A second submit by
// the same user is reported as a success with duplicate=true and writes
// nothing.
func (h *SubmissionHandler) SubmitAnswer(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.submissionService.Submit(puzzleID, userID.(uint), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPuzzleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrPuzzleNotActive),
			errors.Is(err, services.ErrPuzzleExpired),
			errors.Is(err, services.ErrEmptyAnswer):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSubmissionsFrozen),
			errors.Is(err, services.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit answer"})
		}
		return
	}

	if h.hub != nil && !result.Duplicate {
		h.hub.PublishSnapshot(services.LeaderboardTopic(puzzleID))
	}
	c.JSON(http.StatusOK, result)
}

// GetMySubmission returns the caller's submission for one puzzle, if any.
func (h *SubmissionHandler) GetMySubmission(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	submission, err := h.submissionService.GetUserSubmission(puzzleID, userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": submission})
}

// GetMySubmissions returns the caller's full submission history.
func (h *SubmissionHandler) GetMySubmissions(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	submissions, err := h.submissionService.GetUserSubmissions(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GetLeaderboard serves the public leaderboard page for a puzzle.
func (h *SubmissionHandler) GetLeaderboard(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	submissions, err := h.submissionService.GetLeaderboard(puzzleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GetPuzzleSubmissions lists every submission for a puzzle (admin grading
// view).
func (h *SubmissionHandler) GetPuzzleSubmissions(c *gin.Context) {
	puzzleID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid puzzle ID"})
		return
	}

	submissions, err := h.submissionService.GetPuzzleSubmissions(puzzleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GetAllSubmissions lists every submission across all puzzles (admin
// overview).
func (h *SubmissionHandler) GetAllSubmissions(c *gin.Context) {
	submissions, err := h.submissionService.GetAllSubmissions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GradeSubmission scores a submission 1-5 and refreshes the submitter's
// aggregates.
func (h *SubmissionHandler) GradeSubmission(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	submissionID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var req services.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.submissionService.Grade(submissionID, req.Grade, userID.(uint))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubmissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidGrade):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grade submission"})
		}
		return
	}

	if h.hub != nil {
		h.hub.PublishSnapshot(services.LeaderboardTopic(submission.PuzzleID))
		h.hub.PublishSnapshot(services.TopicUsers)
	}
	c.JSON(http.StatusOK, submission)
}
