package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const realIPKey = "real_ip"

// proxy headers in the order they are trusted
var realIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP"}

// ParseTrustedProxies turns a list of IPs and CIDRs into networks. Bare IPs become /32 or /128.
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, &net.ParseError{Type: "IP address", Text: e}
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP stores the client address under "real_ip" for the limiter, audit log and request log.
// Proxy headers are honoured only when the peer is one of trusted. Then it prefers CF-Connecting-IP,
// then X-Real-IP, then the right-most X-Forwarded-For entry that is not itself a trusted proxy.
// Any other peer is identified by its socket address.
func RealIP(trusted []*net.IPNet) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(realIPKey, resolveIP(c, trusted))
		c.Next()
	}
}

func resolveIP(c *gin.Context, trusted []*net.IPNet) string {
	remote := c.RemoteIP()
	if !containsIP(trusted, net.ParseIP(remote)) {
		return remote
	}
	for _, h := range realIPHeaders {
		if ip := net.ParseIP(strings.TrimSpace(c.GetHeader(h))); ip != nil {
			return ip.String()
		}
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		for i := len(parts) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(parts[i]))
			if ip == nil || containsIP(trusted, ip) {
				continue
			}
			return ip.String()
		}
	}
	return remote
}

// PrivateOnly rejects callers outside loopback and private networks.
func PrivateOnly() gin.HandlerFunc {
	allow := AllowPrivateIP()
	return func(c *gin.Context) {
		if !allow(c) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
