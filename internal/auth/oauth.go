package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleUserInfo is the OpenID Connect userinfo response.
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// SetGoogle enables Google SSO. A nil config leaves it disabled.
func (s *Service) SetGoogle(cfg *oauth2.Config) { s.google = cfg }

// GoogleAuthURL returns the consent page URL carrying state.
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrSSOUnavailable
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback exchanges an authorization code and signs the Google account
// in. An existing account with the same email is linked rather than duplicated.
func (s *Service) GoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrSSOUnavailable
	}
	info, err := s.googleUserInfo(ctx, code)
	if err != nil {
		logger.WarnWithFields("Google sign-in failed", err)
		return nil, ErrSSOFailed
	}
	if info.Sub == "" || info.Email == "" {
		return nil, ErrSSOFailed
	}

	user, err := s.users.GetUserByGoogleID(ctx, info.Sub)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup google id: %w", err)
	}
	if !info.EmailVerified {
		return nil, ErrSSOEmailUnverified
	}

	user, err = s.users.GetUserByEmail(ctx, info.Email)
	switch {
	case err == nil:
		fields := map[string]interface{}{"google_id": info.Sub}
		if user.PhotoURL == "" && info.Picture != "" {
			fields["photo_url"] = info.Picture
		}
		if err := s.users.UpdateUser(ctx, user.ID, fields); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		logger.Log.Info("Linked Google account", logger.WithUserID(user.ID))
		user, err = s.users.GetUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return s.issue(user)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = strings.SplitN(info.Email, "@", 2)[0]
	}
	sub := info.Sub
	user, err = s.createUser(ctx, &models.User{
		Email:       strings.ToLower(info.Email),
		DisplayName: name,
		PhotoURL:    info.Picture,
		GoogleID:    &sub,
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("User registered with Google", logger.WithUserID(user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

func (s *Service) googleUserInfo(ctx context.Context, code string) (*GoogleUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.google.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
