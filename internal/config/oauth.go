package config

import (
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadGoogleOAuth returns the Google SSO client config, or nil when
// GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET are unset (SSO routes then answer 503).
// Callbacks land on OAUTH_REDIRECT_URL + /api/v1/auth/google/callback.
func LoadGoogleOAuth() *oauth2.Config {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil
	}

	redirectBase := getEnvOrDefault("OAUTH_REDIRECT_URL", "http://localhost:8787")
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectBase + "/api/v1/auth/google/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}
