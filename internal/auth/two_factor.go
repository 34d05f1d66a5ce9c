package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	totpIssuer = "Showcase"
	totpPeriod = 30
)

// TwoFactorSetup is what an authenticator app needs to start producing codes.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// SetupTwoFactor generates a fresh TOTP secret for the user. Sign-in does not
// ask for codes until EnableTwoFactor confirms one. Password accounts must
// re-enter their password; SSO-only accounts have none to check.
func (s *Service) SetupTwoFactor(ctx context.Context, userID, password string) (*TwoFactorSetup, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorEnabled
	}
	if user.PasswordHash != nil && bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      totpPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.users.UpdateUser(ctx, userID, map[string]interface{}{"two_factor_secret": key.Secret()}); err != nil {
		return nil, err
	}
	return &TwoFactorSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// EnableTwoFactor turns on code checks at sign-in once the user proves their
// app produces valid codes.
func (s *Service) EnableTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorEnabled
	}
	if user.TwoFactorSecret == nil {
		return ErrTwoFactorNotSetUp
	}
	if !s.validCode(user, code) {
		return ErrInvalidTwoFactor
	}
	if err := s.users.UpdateUser(ctx, userID, map[string]interface{}{"two_factor_enabled": true}); err != nil {
		return err
	}
	logger.Log.Info("Two-factor sign-in enabled", logger.WithUserID(userID))
	return nil
}

// DisableTwoFactor clears the secret. It needs a current code.
func (s *Service) DisableTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotSetUp
	}
	if !s.validCode(user, code) {
		return ErrInvalidTwoFactor
	}
	return s.users.UpdateUser(ctx, userID, map[string]interface{}{
		"two_factor_enabled": false,
		"two_factor_secret":  nil,
	})
}

// validCode accepts the current code and the ones either side of it.
func (s *Service) validCode(user *models.User, code string) bool {
	if user.TwoFactorSecret == nil {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), *user.TwoFactorSecret, s.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
