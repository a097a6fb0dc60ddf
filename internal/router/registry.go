package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Registry collects modules and mounts them under /api with the shared API middleware.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	Logger      *logrus.Logger
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine, logger *logrus.Logger) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api"), Logger: logger}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll applies the API middleware and mounts every module once.
func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	before := len(r.Engine.Routes())
	for _, m := range r.modules {
		m.Register(r.API)
		after := len(r.Engine.Routes())
		if r.Logger != nil {
			r.Logger.WithFields(logrus.Fields{"module": m.Name(), "routes": after - before}).Debug("module registered")
		}
		before = after
	}
	r.modules = nil
}
