// Package auth handles sign-up, sign-in, session tokens, password resets and
// Google SSO.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/profile"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	MinPasswordLength = 8
	DefaultTokenTTL   = 24 * time.Hour
	ResetTokenTTL     = time.Hour
)

// Emailer delivers password reset links.
type Emailer interface {
	SendPasswordReset(ctx context.Context, toEmail, displayName, token string) error
}

// UserIndexer adds new accounts to the search index.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *models.User) error
}

// AuthResponse is returned by every successful sign-in.
type AuthResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	// Code is the authenticator code, required once two-factor sign-in is on.
	Code string `json:"code"`
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service handles all authentication operations.
type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	defaults models.Preferences
	emailer  Emailer
	indexer  UserIndexer

	google      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client

	now func() time.Time
}

func NewService(db *gorm.DB, users repository.UserRepository, secret []byte, tokenTTL time.Duration, defaults models.Preferences) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		db:          db,
		users:       users,
		secret:      secret,
		tokenTTL:    tokenTTL,
		defaults:    defaults,
		userInfoURL: googleUserInfoURL,
		httpClient:  telemetry.NewInstrumentedHTTPClient(10 * time.Second),
		now:         time.Now,
	}
}

func (s *Service) SetEmailer(e Emailer)     { s.emailer = e }
func (s *Service) SetIndexer(i UserIndexer) { s.indexer = i }

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, ErrMissingDisplayName
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user, err := s.createUser(ctx, &models.User{
		Email:        email,
		DisplayName:  name,
		PasswordHash: &hashStr,
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

// Login checks an email and password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if user.TwoFactorEnabled {
		if strings.TrimSpace(req.Code) == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.validCode(user, req.Code) {
			logger.Log.Warn("Rejected two-factor code at login", logger.WithUserID(user.ID))
			return nil, ErrInvalidTwoFactor
		}
	}
	return s.issue(user)
}

// Me returns the signed-in user with preference defaults applied.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Preferences = user.Preferences.WithDefaults(s.defaults)
	return user, nil
}

// ValidateToken returns the user id a session token was issued to.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// RequestPasswordReset emails a reset link when the account exists. It reports
// success either way so callers cannot find out which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		Token:     strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ExpiresAt: s.now().UTC().Add(ResetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(reset).Error; err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	if s.emailer == nil {
		logger.Log.Warn("Password reset requested but email is not configured", logger.WithUserID(user.ID))
		return nil
	}
	if err := s.emailer.SendPasswordReset(ctx, user.Email, user.DisplayName, reset.Token); err != nil {
		logger.ErrorWithFields("Failed to send password reset email", err, logger.WithUserID(user.ID))
	}
	return nil
}

// ConfirmPasswordReset sets a new password. Each token works once.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordReset
		err := tx.Where("token = ? AND used = ? AND expires_at > ?", token, false, s.now().UTC()).First(&reset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.PasswordReset{}).Where("id = ? AND used = ?", reset.ID, false).Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}
		return s.users.WithTx(tx).UpdateUser(ctx, reset.UserID, map[string]interface{}{"password_hash": string(hash)})
	})
}

func (s *Service) createUser(ctx context.Context, user *models.User) (*models.User, error) {
	username, err := profile.DeriveUsername(ctx, s.users, user.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("derive username: %w", err)
	}
	user.Username = username
	user.Preferences = s.defaults
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if s.indexer != nil {
		if err := s.indexer.IndexUser(ctx, user); err != nil {
			logger.WarnWithFields("Failed to index user", err, logger.WithUserID(user.ID))
		}
	}
	return user, nil
}

func (s *Service) issue(user *models.User) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	user.Preferences = user.Preferences.WithDefaults(s.defaults)
	return &AuthResponse{Token: signed, User: user, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
