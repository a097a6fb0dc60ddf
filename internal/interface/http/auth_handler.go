package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/internal/domain/entity"
	"github.com/oksasatya/prevently-api/pkg/helpers"
	"github.com/oksasatya/prevently-api/pkg/response"
	"github.com/oksasatya/prevently-api/pkg/validation"
)

type AuthHandler struct {
	Svc            *application.AuthService
	Logger         *logrus.Logger
	Cookies        *helpers.Manager
	MaxUploadBytes int64
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool, maxUpload int64) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure), MaxUploadBytes: maxUpload}
}

type registerRequest struct {
	FirstName       string                `json:"firstName" binding:"required,personname"`
	LastName        string                `json:"lastName" binding:"required,personname"`
	Email           string                `json:"email" binding:"required,email"`
	Password        string                `json:"password" binding:"required,pwd"`
	ConfirmPassword string                `json:"confirmPassword" binding:"required,eqfield=Password"`
	HealthProfile   *entity.HealthProfile `json:"healthProfile"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateDetailsRequest struct {
	FirstName     *string               `json:"firstName" binding:"omitempty,personname"`
	LastName      *string               `json:"lastName" binding:"omitempty,personname"`
	Email         *string               `json:"email" binding:"omitempty,email"`
	FamilyRole    *string               `json:"familyRole" binding:"omitempty,familyrole"`
	HealthProfile *entity.HealthProfile `json:"healthProfile"`
	Preferences   *entity.Preferences   `json:"preferences"`
}

type updatePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required,pwd"`
	ConfirmNewPassword string `json:"confirmNewPassword" binding:"required,eqfield=NewPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

type addFamilyRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func tokenMeta(pair application.TokenPair) map[string]any {
	return map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry}
}

// respondWithTokens sets the auth cookies and returns the access token with the user view.
func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, u *entity.User, pair application.TokenPair, message string) {
	view, err := h.Svc.View(c.Request.Context(), u)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, status, gin.H{"token": pair.AccessToken, "refreshToken": pair.RefreshToken, "user": view}, message, tokenMeta(pair))
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Password:      req.Password,
		HealthProfile: req.HealthProfile,
	}, requestMeta(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.respondWithTokens(c, http.StatusCreated, u, pair, "user registered")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.respondWithTokens(c, http.StatusOK, u, pair, "login successful")
}

// Refresh accepts the refresh token from its cookie or from the JSON body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(helpers.RefreshCookie)
	if token == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	u, pair, err := h.Svc.Refresh(c.Request.Context(), token, requestMeta(c))
	if err != nil {
		h.Cookies.Clear(c)
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.respondWithTokens(c, http.StatusOK, u, pair, "token refreshed")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString("userID"), requestMeta(c)); err != nil && h.Logger != nil {
		h.Logger.WithError(err).Warn("logout session cleanup failed")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	view, err := h.Svc.Me(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": view}, "current user", nil)
}

func (h *AuthHandler) UpdateDetails(c *gin.Context) {
	var req updateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateDetails(c.Request.Context(), c.GetString("userID"), application.UpdateDetailsInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		FamilyRole:    req.FamilyRole,
		HealthProfile: req.HealthProfile,
		Preferences:   req.Preferences,
	}, requestMeta(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	view, err := h.Svc.View(c.Request.Context(), u)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": view}, "profile updated", nil)
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Svc.UpdatePassword(c.Request.Context(), c.GetString("userID"), req.CurrentPassword, req.NewPassword, requestMeta(c))
	if err != nil {
		if errors.Is(err, application.ErrPasswordMismatch) {
			response.Error[any](c, http.StatusBadRequest, "current password is incorrect", nil)
			return
		}
		fail(c, h.Logger, err)
		return
	}
	h.respondWithTokens(c, http.StatusOK, u, pair, "password updated")
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.DeleteAccount(c.Request.Context(), c.GetString("userID"), req.Password, requestMeta(c)); err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"deactivated": true}, "account deactivated", nil)
}

func (h *AuthHandler) AddFamilyMember(c *gin.Context) {
	var req addFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	member, err := h.Svc.AddFamilyMember(c.Request.Context(), c.GetString("userID"), req.Email, requestMeta(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"familyMember": member}, "family member added", nil)
}

func (h *AuthHandler) ListFamily(c *gin.Context) {
	family, err := h.Svc.ListFamily(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"familyMembers": family}, "family members", map[string]any{"count": len(family)})
}

type activityEntry struct {
	Action    string         `json:"action"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Activity lists recent account events from the audit log.
func (h *AuthHandler) Activity(c *gin.Context) {
	logs, err := h.Svc.Activity(c.Request.Context(), c.GetString("userID"), queryInt(c, "limit", 20))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	out := make([]activityEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, activityEntry{Action: l.Action, IP: l.IP, UserAgent: l.UserAgent, Metadata: l.Metadata, CreatedAt: l.CreatedAt})
	}
	response.Success(c, http.StatusOK, gin.H{"activity": out}, "account activity", nil)
}

func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	f, fh, ok := openUpload(c, "avatar", h.MaxUploadBytes)
	if !ok {
		return
	}
	defer f.Close()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString("userID"), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar": u.Avatar}, "avatar updated", nil)
}
