package services

import (
	"testing"
	"time"

	"mathclub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllUsersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	older := seedUser(t, db, &models.User{Email: "old@example.com", DisplayName: "Old", CreatedAt: time.Now().Add(-2 * time.Hour)})
	newer := seedUser(t, db, &models.User{Email: "new@example.com", DisplayName: "New", CreatedAt: time.Now().Add(-time.Hour)})

	users, err := svc.GetAllUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, newer.ID, users[0].ID)
	assert.Equal(t, older.ID, users[1].ID)
}

func TestUpdateRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, &models.User{Email: "alice@example.com", DisplayName: "Alice"})

	updated, err := svc.UpdateRole(user.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	_, err = svc.UpdateRole(user.ID, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.UpdateRole(999, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminFlags(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, &models.User{Email: "alice@example.com", DisplayName: "Alice"})

	frozen, err := svc.SetFreezeSubmissions(user.ID, true)
	require.NoError(t, err)
	assert.True(t, frozen.FreezeSubmissions)

	disabled, err := svc.SetAccountDisabled(user.ID, true)
	require.NoError(t, err)
	assert.True(t, disabled.AccountDisabled)

	restored, err := svc.SetAccountDisabled(user.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.AccountDisabled)
}

func TestRoleHelpers(t *testing.T) {
	assert.False(t, (&models.User{Role: models.RoleUser}).IsAdmin())
	assert.True(t, (&models.User{Role: models.RoleAdmin}).IsAdmin())
	assert.False(t, (&models.User{Role: models.RoleAdmin}).IsSuperAdmin())
	assert.True(t, (&models.User{Role: models.RoleSuperAdmin}).IsAdmin())
	assert.True(t, (&models.User{Role: models.RoleSuperAdmin}).IsSuperAdmin())
}
