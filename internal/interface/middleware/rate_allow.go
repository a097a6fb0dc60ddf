package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses the limiter for loopback and private-network clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		return parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate())
	}
}

// AllowPaths bypasses the limiter for requests whose path starts with one of prefixes.
func AllowPaths(prefixes ...string) AllowFunc {
	return func(c *gin.Context) bool {
		p := c.Request.URL.Path
		for _, pre := range prefixes {
			if strings.HasPrefix(p, pre) {
				return true
			}
		}
		return false
	}
}

// AnyOf combines allow funcs; the request bypasses the limiter when any of them matches.
func AnyOf(fns ...AllowFunc) AllowFunc {
	return func(c *gin.Context) bool {
		for _, f := range fns {
			if f != nil && f(c) {
				return true
			}
		}
		return false
	}
}
