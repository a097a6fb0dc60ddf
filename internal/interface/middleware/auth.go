package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/internal/domain/entity"
	"github.com/oksasatya/prevently-api/pkg/helpers"
	"github.com/oksasatya/prevently-api/pkg/response"
)

const userKey = "user"

// SessionChecker is satisfied by *application.AuthService.
type SessionChecker interface {
	CheckSession(ctx context.Context, userID, sid string) error
	ActiveUser(ctx context.Context, userID string) (*entity.User, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if t, err := c.Cookie(helpers.AccessCookie); err == nil {
		return t
	}
	return ""
}

// Auth validates the access token from the Authorization header or the access cookie,
// checks it belongs to the current session and loads the active user.
// It sets userID, userName, userEmail and user in the Gin context on success.
func Auth(jwt *helpers.JWTManager, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "not authorized to access this route", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}

		ctx := c.Request.Context()
		if err := sessions.CheckSession(ctx, claims.UserID, claims.SessionID); err != nil {
			if errors.Is(err, application.ErrSessionExpired) {
				response.Abort(c, http.StatusUnauthorized, "session not found", nil)
				return
			}
			response.Abort(c, http.StatusInternalServerError, "session lookup failed", nil)
			return
		}
		u, err := sessions.ActiveUser(ctx, claims.UserID)
		switch {
		case errors.Is(err, application.ErrAccountInactive):
			response.Abort(c, http.StatusUnauthorized, "account is deactivated", nil)
			return
		case err != nil:
			response.Abort(c, http.StatusUnauthorized, "user not found", nil)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userName", u.FullName())
		c.Set("userEmail", u.Email)
		c.Set(userKey, u)
		c.Next()
	}
}

// CurrentUser returns the user loaded by Auth, or nil.
func CurrentUser(c *gin.Context) *entity.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*entity.User); ok {
			return u
		}
	}
	return nil
}

// RequirePremium lets through users whose premium or family subscription is active.
func RequirePremium() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.HasPremiumAccess(time.Now()) {
			response.Abort(c, http.StatusForbidden, "this feature requires a premium subscription", nil)
			return
		}
		c.Next()
	}
}
