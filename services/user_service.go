package services

import (
	"errors"

	"mathclub/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("role must be user, admin or superadmin")
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetAllUsers lists every profile for the admin screen, newest first.
func (s *UserService) GetAllUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.Order("created_at DESC").Find(&users).Error
	return users, err
}

// UpdateRole changes a user's role; superadmin only at the route level.
func (s *UserService) UpdateRole(userID uint, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// SetFreezeSubmissions blocks or unblocks new submissions for one account.
func (s *UserService) SetFreezeSubmissions(userID uint, freeze bool) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Update("freeze_submissions", freeze).Error; err != nil {
		return nil, err
	}
	user.FreezeSubmissions = freeze
	return user, nil
}

// SetAccountDisabled locks or unlocks an account. Disabled accounts cannot
// log in or submit; the profile document is kept.
func (s *UserService) SetAccountDisabled(userID uint, disabled bool) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Update("account_disabled", disabled).Error; err != nil {
		return nil, err
	}
	user.AccountDisabled = disabled
	return user, nil
}
