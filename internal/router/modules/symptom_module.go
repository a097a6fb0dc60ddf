package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/prevently-api/internal/container"
	handlers "github.com/oksasatya/prevently-api/internal/interface/http"
	"github.com/oksasatya/prevently-api/internal/interface/middleware"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

// SymptomModule wires the symptom log routes. All of them require a session.
type SymptomModule struct {
	Handler  *handlers.SymptomHandler
	JWT      *helpers.JWTManager
	Sessions middleware.SessionChecker
	PerUser  Limit
}

func NewSymptomModule(h *handlers.SymptomHandler, jwt *helpers.JWTManager, sessions middleware.SessionChecker, perUser Limit) *SymptomModule {
	return &SymptomModule{Handler: h, JWT: jwt, Sessions: sessions, PerUser: perUser}
}

func (m *SymptomModule) Name() string { return "symptoms" }

func (m *SymptomModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/symptoms")
	g.Use(middleware.Auth(m.JWT, m.Sessions))
	g.Use(middleware.RateLimit(container.GetRedis(), m.PerUser.Max, m.PerUser.Window, middleware.KeyByUserID(), nil))

	// static paths take precedence over /:id in gin's tree
	g.GET("/analytics", m.Handler.Analytics)
	g.GET("/insights", middleware.RequirePremium(), m.Handler.Insights)
	g.GET("/trending", m.Handler.Trending)
	g.GET("/search", m.Handler.Search)

	g.POST("", m.Handler.Create)
	g.GET("", m.Handler.List)
	g.GET("/:id", m.Handler.Get)
	g.PUT("/:id", m.Handler.Update)
	g.DELETE("/:id", m.Handler.Delete)
	g.POST("/:id/attachments", m.Handler.AddAttachment)
}
