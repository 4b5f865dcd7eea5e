package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mathclub/config"
	"mathclub/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailInUse         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("please verify your email before logging in; check your inbox and spam folder for a verification email")
	ErrAccountDisabled    = errors.New("this account has been disabled")
	ErrAlreadyVerified    = errors.New("email is already verified")
)

type AuthService struct {
	db     *gorm.DB
	tokens *TokenStore
	mailer Mailer
	cfg    *config.Config
}

func NewAuthService(db *gorm.DB, tokens *TokenStore, mailer Mailer, cfg *config.Config) *AuthService {
	return &AuthService{db: db, tokens: tokens, mailer: mailer, cfg: cfg}
}

type SignupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// Signup creates an unverified account and emails a verification link. No
// session token is issued: the account cannot log in until the email is
// verified.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	if err := s.sendVerificationEmail(ctx, &user); err != nil {
		// The account exists; the user can ask for a resend.
		log.Printf("Failed to send verification email to %s: %v", user.Email, err)
	}

	return &user, nil
}

// Login authenticates a verified account and returns a signed session
// token. Unverified accounts are rejected outright so they are never
// observable as logged in.
func (s *AuthService) Login(req *LoginRequest) (*models.User, string, error) {
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if user.AccountDisabled {
		return nil, "", ErrAccountDisabled
	}
	if !user.EmailVerified {
		return nil, "", ErrEmailNotVerified
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, "", err
	}
	user.LastLoginAt = &now

	token, err := s.signToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Consume(ctx, tokenPurposeVerify, token)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&user).Update("email_verified", true).Error; err != nil {
		return nil, err
	}
	user.EmailVerified = true
	return &user, nil
}

// RequestPasswordReset emails a reset link. Unknown emails are reported to
// the caller; the handler decides how much to reveal.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return err
	}

	token, err := s.tokens.Issue(ctx, tokenPurposeReset, user.ID, s.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/login?reset=%s", s.cfg.BaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your Math Club account. "+
		"Follow this link to choose a new password:\n\n%s\n\n"+
		"If you did not request this you can ignore this email.", user.DisplayName, link)
	return s.mailer.Send(user.Email, "Reset your Math Club password", body)
}

// ConfirmPasswordReset consumes a reset token and installs the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req *ResetPasswordRequest) error {
	userID, err := s.tokens.Consume(ctx, tokenPurposeReset, req.Token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("password_hash", string(hash)).Error
}

// ResendVerification re-sends the verification email for an account that
// exists and is still unverified.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	return s.sendVerificationEmail(ctx, &user)
}

// GetProfile returns the caller's profile document.
func (s *AuthService) GetProfile(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, user *models.User) error {
	token, err := s.tokens.Issue(ctx, tokenPurposeVerify, user.ID, s.cfg.VerifyTokenTTL)
	if err != nil {
		return err
	}

	// The login page reads verified=true to show its success banner once
	// the token has been redeemed.
	link := fmt.Sprintf("%s/login?verified=true&token=%s", s.cfg.BaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nWelcome to the Math Club! Please verify your email "+
		"address by following this link:\n\n%s\n\n"+
		"You will not be able to log in until your email is verified.", user.DisplayName, link)
	return s.mailer.Send(user.Email, "Verify your Math Club email", body)
}

func (s *AuthService) signToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
