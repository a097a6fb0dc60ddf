package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/prevently-api/pkg/response"
)

// PingFunc reports whether a backing store is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	AppName string
	Version string
	Env     string
	Started time.Time
	Checks  map[string]PingFunc
}

func NewHealthHandler(appName, version, env string, checks map[string]PingFunc) *HealthHandler {
	return &HealthHandler{AppName: appName, Version: version, Env: env, Started: time.Now(), Checks: checks}
}

// Health reports uptime and the state of each dependency. Any failed check turns the status to 503.
func (h *HealthHandler) Health(c *gin.Context) {
	deps := make(map[string]string, len(h.Checks))
	healthy := true
	for name, ping := range h.Checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := ping(ctx)
		cancel()
		if err != nil {
			deps[name] = "down"
			healthy = false
			continue
		}
		deps[name] = "up"
	}

	status, msg := http.StatusOK, "OK"
	if !healthy {
		status, msg = http.StatusServiceUnavailable, "degraded"
	}
	data := gin.H{
		"status":       msg,
		"uptime":       time.Since(h.Started).Round(time.Second).String(),
		"uptimeSecond": int64(time.Since(h.Started).Seconds()),
		"environment":  h.Env,
		"version":      h.Version,
		"goVersion":    runtime.Version(),
		"dependencies": deps,
	}
	if healthy {
		response.Success(c, status, data, msg, nil)
		return
	}
	response.Error[any](c, status, msg, data)
}

// Info lists the API surface.
func (h *HealthHandler) Info(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"name":        h.AppName,
		"version":     h.Version,
		"environment": h.Env,
		"endpoints": gin.H{
			"auth":     "/api/auth",
			"symptoms": "/api/symptoms",
			"health":   "/api/health",
		},
	}, "API information", nil)
}

func NotFound(c *gin.Context) {
	response.Error[any](c, http.StatusNotFound, "Route "+c.Request.URL.Path+" not found", nil)
}
