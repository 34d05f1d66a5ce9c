package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/testutil"
	"github.com/zfogg/showcase/internal/util"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type sentEmail struct {
	to, name, token string
}

type fakeEmailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeEmailer) SendPasswordReset(_ context.Context, to, name, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{to, name, token})
	return nil
}

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	svc     *Service
	emailer *fakeEmailer
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.svc = NewService(s.db, repository.NewUserRepository(s.db), []byte("test-secret"), 0,
		models.Preferences{Theme: models.ThemeLight, FontSize: models.FontSizeMedium})
	s.emailer = &fakeEmailer{}
	s.svc.SetEmailer(s.emailer)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) register(email, name string) *AuthResponse {
	resp, err := s.svc.Register(context.Background(), RegisterRequest{Email: email, Password: "password123", DisplayName: name})
	s.Require().NoError(err)
	return resp
}

func (s *AuthServiceTestSuite) TestRegisterDerivesUsernameAndIssuesToken() {
	resp := s.register("Ada@Example.com", "Ada Lovelace")
	s.Equal("ada@example.com", resp.User.Email)
	s.Equal("adalovelace", resp.User.Username)
	s.Equal(models.ThemeLight, resp.User.Preferences.Theme)
	s.WithinDuration(time.Now().Add(DefaultTokenTTL), resp.ExpiresAt, time.Minute)

	userID, err := s.svc.ValidateToken(resp.Token)
	s.Require().NoError(err)
	s.Equal(resp.User.ID, userID)

	second := s.register("ada2@example.com", "Ada Lovelace")
	s.Equal("adalovelace1", second.User.Username)
}

func (s *AuthServiceTestSuite) TestRegisterValidates() {
	ctx := context.Background()
	cases := []struct {
		req  RegisterRequest
		want *Error
	}{
		{RegisterRequest{Email: "not-an-email", Password: "password123", DisplayName: "A"}, ErrInvalidEmail},
		{RegisterRequest{Email: "a@example.com", Password: "short", DisplayName: "A"}, ErrWeakPassword},
		{RegisterRequest{Email: "a@example.com", Password: "password123", DisplayName: "  "}, ErrMissingDisplayName},
	}
	for _, tc := range cases {
		_, err := s.svc.Register(ctx, tc.req)
		s.ErrorIs(err, tc.want)
	}

	s.register("a@example.com", "A")
	_, err := s.svc.Register(ctx, RegisterRequest{Email: "A@EXAMPLE.COM", Password: "password123", DisplayName: "B"})
	s.ErrorIs(err, ErrEmailInUse)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *AuthServiceTestSuite) TestLogin() {
	ctx := context.Background()
	s.register("ada@example.com", "Ada")

	resp, err := s.svc.Login(ctx, LoginRequest{Email: "ADA@example.com", Password: "password123"})
	s.Require().NoError(err)
	s.NotEmpty(resp.Token)

	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials, "unknown accounts look like wrong passwords")
}

func authenticatorCode(t *testing.T, secret string, at time.Time) string {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period: totpPeriod, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func (s *AuthServiceTestSuite) TestTwoFactorLogin() {
	ctx := context.Background()
	now := time.Now()
	s.svc.now = func() time.Time { return now }
	user := s.register("ada@example.com", "Ada").User

	_, err := s.svc.SetupTwoFactor(ctx, user.ID, "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	setup, err := s.svc.SetupTwoFactor(ctx, user.ID, "password123")
	s.Require().NoError(err)
	s.NotEmpty(setup.Secret)
	s.Contains(setup.URL, "otpauth://totp/Showcase")

	// setup alone does not change sign-in
	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password123"})
	s.Require().NoError(err)

	s.ErrorIs(s.svc.EnableTwoFactor(ctx, user.ID, "000000"), ErrInvalidTwoFactor)
	s.Require().NoError(s.svc.EnableTwoFactor(ctx, user.ID, authenticatorCode(s.T(), setup.Secret, now)))
	s.ErrorIs(s.svc.EnableTwoFactor(ctx, user.ID, authenticatorCode(s.T(), setup.Secret, now)), ErrTwoFactorEnabled)

	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password123"})
	s.ErrorIs(err, ErrTwoFactorRequired)
	s.Equal(http.StatusUnprocessableEntity, ToAPIError(err).Status)
	s.Equal("code", ToAPIError(err).Field)

	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password123", Code: "123"})
	s.ErrorIs(err, ErrInvalidTwoFactor)
	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-password", Code: authenticatorCode(s.T(), setup.Secret, now)})
	s.ErrorIs(err, ErrInvalidCredentials)

	resp, err := s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password123", Code: authenticatorCode(s.T(), setup.Secret, now)})
	s.Require().NoError(err)
	s.True(resp.User.TwoFactorEnabled)

	s.Require().NoError(s.svc.DisableTwoFactor(ctx, user.ID, authenticatorCode(s.T(), setup.Secret, now)))
	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password123"})
	s.Require().NoError(err)
	s.ErrorIs(s.svc.DisableTwoFactor(ctx, user.ID, "000000"), ErrTwoFactorNotSetUp)
	s.ErrorIs(s.svc.EnableTwoFactor(ctx, user.ID, "000000"), ErrTwoFactorNotSetUp)
}

func (s *AuthServiceTestSuite) TestValidateTokenRejectsTampering() {
	resp := s.register("ada@example.com", "Ada")

	_, err := s.svc.ValidateToken(resp.Token + "x")
	s.ErrorIs(err, ErrInvalidToken)

	other := NewService(s.db, repository.NewUserRepository(s.db), []byte("other-secret"), 0, models.Preferences{})
	_, err = other.ValidateToken(resp.Token)
	s.ErrorIs(err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: resp.User.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)
	_, err = s.svc.ValidateToken(unsigned)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *AuthServiceTestSuite) TestExpiredToken() {
	resp := s.register("ada@example.com", "Ada")
	s.svc.now = func() time.Time { return time.Now().Add(DefaultTokenTTL + time.Minute) }
	_, err := s.svc.ValidateToken(resp.Token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *AuthServiceTestSuite) TestPasswordResetIsSingleUse() {
	ctx := context.Background()
	s.register("ada@example.com", "Ada")

	s.Require().NoError(s.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	s.Empty(s.emailer.sent, "unknown addresses get no email but the same answer")

	s.Require().NoError(s.svc.RequestPasswordReset(ctx, "ADA@example.com"))
	s.Require().Len(s.emailer.sent, 1)
	token := s.emailer.sent[0].token
	s.Equal("ada@example.com", s.emailer.sent[0].to)

	s.ErrorIs(s.svc.ConfirmPasswordReset(ctx, token, "short"), ErrWeakPassword)
	s.Require().NoError(s.svc.ConfirmPasswordReset(ctx, token, "new-password"))
	s.ErrorIs(s.svc.ConfirmPasswordReset(ctx, token, "another-password"), ErrInvalidResetToken)

	_, err := s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "new-password"})
	s.NoError(err)
	_, err = s.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *AuthServiceTestSuite) TestPasswordResetExpires() {
	ctx := context.Background()
	s.register("ada@example.com", "Ada")
	s.Require().NoError(s.svc.RequestPasswordReset(ctx, "ada@example.com"))
	token := s.emailer.sent[0].token

	s.svc.now = func() time.Time { return time.Now().Add(ResetTokenTTL + time.Minute) }
	s.ErrorIs(s.svc.ConfirmPasswordReset(ctx, token, "new-password"), ErrInvalidResetToken)
}

func (s *AuthServiceTestSuite) googleServer(info GoogleUserInfo) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "access", "token_type": "Bearer", "expires_in": 3600,
			})
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(info)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	s.T().Cleanup(srv.Close)

	s.svc.SetGoogle(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	})
	s.svc.userInfoURL = srv.URL + "/userinfo"
}

func (s *AuthServiceTestSuite) TestGoogleLinksExistingAccountByEmail() {
	existing := s.register("ada@example.com", "Ada")
	s.googleServer(GoogleUserInfo{Sub: "g-1", Email: "ada@example.com", EmailVerified: true, Name: "Ada L", Picture: "https://img/ada.png"})

	resp, err := s.svc.GoogleCallback(context.Background(), "code")
	s.Require().NoError(err)
	s.Equal(existing.User.ID, resp.User.ID)
	s.Require().NotNil(resp.User.GoogleID)
	s.Equal("g-1", *resp.User.GoogleID)
	s.Equal("https://img/ada.png", resp.User.PhotoURL)

	again, err := s.svc.GoogleCallback(context.Background(), "code")
	s.Require().NoError(err)
	s.Equal(existing.User.ID, again.User.ID)

	var n int64
	s.Require().NoError(s.db.Model(&models.User{}).Count(&n).Error)
	s.Equal(int64(1), n)
}

func (s *AuthServiceTestSuite) TestGoogleCreatesNewAccount() {
	s.googleServer(GoogleUserInfo{Sub: "g-2", Email: "Grace@Example.com", EmailVerified: true, Name: "Grace Hopper"})

	resp, err := s.svc.GoogleCallback(context.Background(), "code")
	s.Require().NoError(err)
	s.Equal("gracehopper", resp.User.Username)
	s.Equal("grace@example.com", resp.User.Email)
	s.Nil(resp.User.PasswordHash)
}

func (s *AuthServiceTestSuite) TestGoogleRejectsUnverifiedEmail() {
	s.register("ada@example.com", "Ada")
	s.googleServer(GoogleUserInfo{Sub: "g-3", Email: "ada@example.com", Name: "Mallory"})

	_, err := s.svc.GoogleCallback(context.Background(), "code")
	s.ErrorIs(err, ErrSSOEmailUnverified)
}

func (s *AuthServiceTestSuite) TestGoogleDisabled() {
	_, err := s.svc.GoogleAuthURL("state")
	s.ErrorIs(err, ErrSSOUnavailable)
	_, err = s.svc.GoogleCallback(context.Background(), "code")
	s.ErrorIs(err, ErrSSOUnavailable)
}

func TestMessageTableIsClosed(t *testing.T) {
	assert.Equal(t, "Incorrect email or password.", Message(ErrInvalidCredentials))
	assert.Equal(t, GenericMessage, Message(errors.New("pq: connection refused to 10.0.0.3")))
	assert.Equal(t, GenericMessage, Message(&Error{Code: "made_up"}))

	apiErr := ToAPIError(errors.New("dial tcp: secret host"))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.NotContains(t, apiErr.Message, "secret host")

	apiErr = ToAPIError(ErrWeakPassword)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "password", apiErr.Field)

	assert.Equal(t, http.StatusUnauthorized, ToAPIError(ErrInvalidToken).Status)
	assert.Equal(t, http.StatusConflict, ToAPIError(ErrEmailInUse).Status)
	assert.Equal(t, http.StatusServiceUnavailable, ToAPIError(ErrSSOUnavailable).Status)
}

type staticTokens map[string]string

func (s staticTokens) ValidateToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", ErrInvalidToken
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := staticTokens{"good": "user-1"}

	r := gin.New()
	r.GET("/private", AuthMiddleware(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, util.OptionalUserID(c))
	})
	r.GET("/public", OptionalAuthMiddleware(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, "viewer="+util.OptionalUserID(c))
	})

	do := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do("/private", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do("/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do("/private", "Bearer bad").Code)
	assert.Equal(t, http.StatusUnauthorized, do("/private", "Basic good").Code)

	assert.Equal(t, "viewer=user-1", do("/public", "Bearer good").Body.String())
	assert.Equal(t, "viewer=", do("/public", "Bearer bad").Body.String())
}
