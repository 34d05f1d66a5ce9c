package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zfogg/showcase/internal/auth"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/util"
	"go.uber.org/zap"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600
)

// respondAuthError answers through the closed auth message table so raw error
// text never reaches the client.
func respondAuthError(c *gin.Context, err error) {
	apiErr := auth.ToAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("Auth request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	util.RespondWithAPIError(c, apiErr)
}

// Register creates a password account
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "email and password are required")
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login signs in with email and password
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "email and password are required")
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the signed-in user
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RequestPasswordReset emails a reset link. The answer is the same whether or
// not the address has an account.
// POST /api/v1/auth/password-reset
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "email", "email is required")
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that address has an account, a reset link is on its way."})
}

// ConfirmPasswordReset sets a new password using an emailed token
// POST /api/v1/auth/password-reset/confirm
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "token and new_password are required")
		return
	}
	if err := h.auth.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// GoogleOAuth redirects to Google's consent page
// GET /api/v1/auth/google
func (h *Handlers) GoogleOAuth(c *gin.Context) {
	state := uuid.NewString()
	url, err := h.auth.GoogleAuthURL(state)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/api/v1/auth", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback completes Google sign-in
// GET /api/v1/auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	expected, err := c.Cookie(oauthStateCookie)
	state := c.Query("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		respondAuthError(c, auth.ErrSSOFailed)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/v1/auth", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		respondAuthError(c, auth.ErrSSOFailed)
		return
	}
	resp, err := h.auth.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetupTwoFactor issues a TOTP secret for an authenticator app
// POST /api/v1/auth/2fa/setup
func (h *Handlers) SetupTwoFactor(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&req)
	setup, err := h.auth.SetupTwoFactor(c.Request.Context(), userID, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// EnableTwoFactor turns on code checks at sign-in
// POST /api/v1/auth/2fa/enable
func (h *Handlers) EnableTwoFactor(c *gin.Context) {
	h.twoFactorCode(c, h.auth.EnableTwoFactor, true)
}

// DisableTwoFactor turns code checks off again
// POST /api/v1/auth/2fa/disable
func (h *Handlers) DisableTwoFactor(c *gin.Context) {
	h.twoFactorCode(c, h.auth.DisableTwoFactor, false)
}

func (h *Handlers) twoFactorCode(c *gin.Context, apply func(ctx context.Context, userID, code string) error, enabled bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "code", "code is required")
		return
	}
	if err := apply(c.Request.Context(), userID, req.Code); err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"two_factor_enabled": enabled})
}
