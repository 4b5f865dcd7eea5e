package services

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"mathclub/config"
	"mathclub/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an isolated in-memory SQLite database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Puzzle{}, &models.Submission{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		BaseURL:        "http://localhost:5173/math-club-western",
		VerifyTokenTTL: 24 * time.Hour,
		ResetTokenTTL:  time.Hour,
	}
}

// fakeMailer records outgoing mail instead of talking to an SMTP server.
type fakeMailer struct {
	sent []fakeEmail
}

type fakeEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, fakeEmail{To: to, Subject: subject, Body: body})
	return nil
}

var tokenParamRe = regexp.MustCompile(`(?:token|reset)=([0-9a-f-]+)`)

// lastToken pulls the one-shot token out of the most recent email's
// callback link.
func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()

	if len(m.sent) == 0 {
		t.Fatal("no email was sent")
	}
	match := tokenParamRe.FindStringSubmatch(m.sent[len(m.sent)-1].Body)
	if match == nil {
		t.Fatalf("no token link in email body: %q", m.sent[len(m.sent)-1].Body)
	}
	return match[1]
}

func seedUser(t *testing.T, db *gorm.DB, user *models.User) *models.User {
	t.Helper()

	if user.PasswordHash == "" {
		user.PasswordHash = "hash"
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedPuzzle(t *testing.T, db *gorm.DB, puzzle *models.Puzzle) *models.Puzzle {
	t.Helper()

	if puzzle.Status == "" {
		puzzle.Status = models.PuzzleBacklog
	}
	if puzzle.Difficulty == 0 {
		puzzle.Difficulty = 3
	}
	if puzzle.Title == "" {
		puzzle.Title = "Sum of Angles"
	}
	if puzzle.Prompt == "" {
		puzzle.Prompt = "Prove the angles sum to 180."
	}
	if err := db.Create(puzzle).Error; err != nil {
		t.Fatalf("failed to seed puzzle: %v", err)
	}
	return puzzle
}
