package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/prevently-api/internal/interface/http"
)

type HealthModule struct {
	Handler *handlers.HealthHandler
}

func NewHealthModule(h *handlers.HealthHandler) *HealthModule { return &HealthModule{Handler: h} }

func (m *HealthModule) Name() string { return "health" }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("", m.Handler.Info)
	rg.GET("/health", m.Handler.Health)
}
