package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/prevently-api/internal/interface/middleware"
)

// DebugModule exposes expvar counters (symptoms logged, cache hits, search fallbacks) to private networks.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Name() string { return "debug" }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", middleware.PrivateOnly(), gin.WrapH(expvar.Handler()))
}
