package services

import (
	"fmt"
	"testing"
	"time"

	"mathclub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func submissionFixture(t *testing.T) (*gorm.DB, *SubmissionService, *models.User, *models.Puzzle) {
	t.Helper()

	db := setupTestDB(t)
	svc := NewSubmissionService(db)
	user := seedUser(t, db, &models.User{Email: "alice@example.com", DisplayName: "Alice", EmailVerified: true})
	puzzle := seedPuzzle(t, db, &models.Puzzle{Status: models.PuzzleActive})
	return db, svc, user, puzzle
}

func TestSubmitCreatesSubmission(t *testing.T) {
	_, svc, user, puzzle := submissionFixture(t)

	result, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "42"})
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Equal(t, puzzle.Title, result.Submission.PuzzleTitle)
	assert.Equal(t, user.DisplayName, result.Submission.UserName)
	assert.Equal(t, user.Email, result.Submission.UserEmail)

	// Submission totals refresh immediately.
	refreshed, err := NewUserService(svc.db).GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.TotalSubmissions)
}

func TestSubmitIsIdempotentPerUserAndPuzzle(t *testing.T) {
	db, svc, user, puzzle := submissionFixture(t)

	first, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "first answer"})
	require.NoError(t, err)

	second, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "second answer"})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Submission.ID, second.Submission.ID)
	assert.Equal(t, "first answer", second.Submission.Answer)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).
		Where("puzzle_id = ? AND user_id = ?", puzzle.ID, user.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmitValidation(t *testing.T) {
	db, svc, user, puzzle := submissionFixture(t)

	_, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "   "})
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	backlog := seedPuzzle(t, db, &models.Puzzle{Status: models.PuzzleBacklog})
	_, err = svc.Submit(backlog.ID, user.ID, &SubmitAnswerRequest{Answer: "x"})
	assert.ErrorIs(t, err, ErrPuzzleNotActive)

	_, err = svc.Submit(999, user.ID, &SubmitAnswerRequest{Answer: "x"})
	assert.ErrorIs(t, err, ErrPuzzleNotFound)
}

func TestSubmitRejectsExpiredPuzzle(t *testing.T) {
	db, svc, user, _ := submissionFixture(t)

	past := time.Now().Add(-time.Minute)
	expired := seedPuzzle(t, db, &models.Puzzle{Status: models.PuzzleActive, ExpiresAt: &past})

	_, err := svc.Submit(expired.ID, user.ID, &SubmitAnswerRequest{Answer: "too late"})
	assert.ErrorIs(t, err, ErrPuzzleExpired)
}

func TestSubmitRespectsAccountFlags(t *testing.T) {
	db, svc, _, puzzle := submissionFixture(t)

	frozen := seedUser(t, db, &models.User{Email: "frozen@example.com", DisplayName: "Frozen", FreezeSubmissions: true})
	_, err := svc.Submit(puzzle.ID, frozen.ID, &SubmitAnswerRequest{Answer: "x"})
	assert.ErrorIs(t, err, ErrSubmissionsFrozen)

	disabled := seedUser(t, db, &models.User{Email: "disabled@example.com", DisplayName: "Disabled", AccountDisabled: true})
	_, err = svc.Submit(puzzle.ID, disabled.ID, &SubmitAnswerRequest{Answer: "x"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestGradeUpdatesSubmissionAndStats(t *testing.T) {
	db, svc, user, puzzle := submissionFixture(t)
	second := seedPuzzle(t, db, &models.Puzzle{Title: "Second Puzzle", Status: models.PuzzleActive})
	admin := seedUser(t, db, &models.User{Email: "admin@example.com", DisplayName: "Admin", Role: models.RoleAdmin})

	first, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "a"})
	require.NoError(t, err)

	other, err := svc.Submit(second.ID, user.ID, &SubmitAnswerRequest{Answer: "b"})
	require.NoError(t, err)

	graded, err := svc.Grade(first.Submission.ID, 3, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 3, *graded.Grade)
	assert.Equal(t, admin.ID, *graded.GradedBy)
	assert.NotNil(t, graded.GradedAt)

	_, err = svc.Grade(other.Submission.ID, 5, admin.ID)
	require.NoError(t, err)

	// Grades {3,5} average to 4, which maps to 80 on the 0-100 scale.
	refreshed, err := NewUserService(db).GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.TotalSubmissions)
	assert.Equal(t, 2, refreshed.CorrectSubmissions)
	assert.InDelta(t, 80.0, refreshed.AverageScore, 0.001)
}

func TestGradeValidation(t *testing.T) {
	_, svc, user, puzzle := submissionFixture(t)

	result, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "a"})
	require.NoError(t, err)

	_, err = svc.Grade(result.Submission.ID, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidGrade)
	_, err = svc.Grade(result.Submission.ID, 6, 1)
	assert.ErrorIs(t, err, ErrInvalidGrade)
	_, err = svc.Grade(12345, 3, 1)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestRegradeOverwrites(t *testing.T) {
	db, svc, user, puzzle := submissionFixture(t)

	result, err := svc.Submit(puzzle.ID, user.ID, &SubmitAnswerRequest{Answer: "a"})
	require.NoError(t, err)

	_, err = svc.Grade(result.Submission.ID, 2, 1)
	require.NoError(t, err)
	regraded, err := svc.Grade(result.Submission.ID, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, *regraded.Grade)

	refreshed, err := NewUserService(db).GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, refreshed.AverageScore, 0.001)
}

func TestSubmissionListingsAreNewestFirst(t *testing.T) {
	db, svc, _, puzzle := submissionFixture(t)

	base := time.Now().Add(-time.Hour)
	for i, email := range []string{"t1@example.com", "t2@example.com", "t3@example.com"} {
		user := seedUser(t, db, &models.User{Email: email, DisplayName: email})
		sub := models.Submission{
			PuzzleID:    puzzle.ID,
			UserID:      user.ID,
			PuzzleTitle: puzzle.Title,
			UserName:    user.DisplayName,
			UserEmail:   user.Email,
			Answer:      "x",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&sub).Error)
	}

	submissions, err := svc.GetPuzzleSubmissions(puzzle.ID)
	require.NoError(t, err)
	require.Len(t, submissions, 3)
	assert.Equal(t, "t3@example.com", submissions[0].UserEmail)
	assert.Equal(t, "t2@example.com", submissions[1].UserEmail)
	assert.Equal(t, "t1@example.com", submissions[2].UserEmail)
}

func TestLeaderboardTruncation(t *testing.T) {
	db, svc, _, puzzle := submissionFixture(t)

	for i := 0; i < LeaderboardSize+5; i++ {
		user := seedUser(t, db, &models.User{
			Email:       fmt.Sprintf("member%d@example.com", i),
			DisplayName: "Member",
		})
		sub := models.Submission{
			PuzzleID:    puzzle.ID,
			UserID:      user.ID,
			PuzzleTitle: puzzle.Title,
			UserName:    user.DisplayName,
			UserEmail:   user.Email,
			Answer:      "x",
		}
		require.NoError(t, db.Create(&sub).Error)
	}

	leaderboard, err := svc.GetLeaderboard(puzzle.ID)
	require.NoError(t, err)
	assert.Len(t, leaderboard, LeaderboardSize)
}
