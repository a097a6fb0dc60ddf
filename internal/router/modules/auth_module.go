package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/prevently-api/internal/container"
	handlers "github.com/oksasatya/prevently-api/internal/interface/http"
	"github.com/oksasatya/prevently-api/internal/interface/middleware"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

// AuthModule wires account routes under /auth.
// Public: register, login, refresh. Everything else requires a valid session.
type AuthModule struct {
	Handler  *handlers.AuthHandler
	JWT      *helpers.JWTManager
	Sessions middleware.SessionChecker
	Public   Limit
	PerUser  Limit
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, sessions middleware.SessionChecker, public, perUser Limit) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Sessions: sessions, Public: public, PerUser: perUser}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	// register and login share one budget per IP
	credLimiter := middleware.RateLimit(rdb, m.Public.Max, m.Public.Window, middleware.KeyByIPAndGroup("auth"), nil,
		middleware.WithMessage("too many authentication attempts, please try again later"))
	refreshLimiter := middleware.RateLimit(rdb, 60, m.PerUser.Window, middleware.KeyByIPAndPath(), nil)

	g := rg.Group("/auth")
	g.POST("/register", credLimiter, m.Handler.Register)
	g.POST("/login", credLimiter, m.Handler.Login)
	g.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	auth := g.Group("")
	auth.Use(middleware.Auth(m.JWT, m.Sessions))
	auth.Use(middleware.RateLimit(rdb, m.PerUser.Max, m.PerUser.Window, middleware.KeyByUserID(), nil))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/logout", m.Handler.Logout)
		auth.GET("/me", m.Handler.Me)
		auth.PUT("/updatedetails", m.Handler.UpdateDetails)
		auth.PUT("/updatepassword", m.Handler.UpdatePassword)
		auth.DELETE("/deleteaccount", m.Handler.DeleteAccount)
		auth.POST("/family/add", m.Handler.AddFamilyMember)
		auth.GET("/family", m.Handler.ListFamily)
		auth.GET("/activity", m.Handler.Activity)
		auth.POST("/avatar", m.Handler.UploadAvatar)
	}
}
