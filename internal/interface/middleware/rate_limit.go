package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/prevently-api/pkg/response"
)

// ipFromCtx returns the address set by RealIP, falling back to gin's ClientIP.
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(realIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and request path
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndGroup shares one bucket per IP across every route that uses the same group name.
func KeyByIPAndGroup(group string) KeyFunc {
	return func(c *gin.Context) string {
		return "rl:" + group + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID limits authenticated callers per account. Anonymous requests fall back to the IP.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		uid := c.GetString("userID")
		if uid == "" {
			return "rl:user:anon:ip:" + ipFromCtx(c)
		}
		return "rl:user:" + uid
	}
}

// incrScript counts a hit and returns {count, pttl}. The expiry is set on the first hit only,
// so the window is fixed rather than sliding.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type AllowFunc func(*gin.Context) bool // return true to bypass the limit

const defaultLimitMessage = "too many requests, please try again later"

type limitConfig struct {
	message string
}

type LimitOption func(*limitConfig)

// WithMessage sets the 429 message.
func WithMessage(msg string) LimitOption {
	return func(l *limitConfig) { l.message = msg }
}

// RateLimit is a fixed-window counter in Redis keyed by keyFn. It sets X-RateLimit-* headers,
// skips OPTIONS and allowed requests, and fails open when Redis is nil or errors.
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc, opts ...LimitOption) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	cfg := limitConfig{message: defaultLimitMessage}
	for _, o := range opts {
		o(&cfg)
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		res, err := incrScript.Run(c.Request.Context(), rdb, []string{keyFn(c)}, window.Milliseconds()).Slice()
		if err != nil || len(res) != 2 {
			c.Next()
			return
		}
		count := toInt(res[0])
		resetSec := 0
		if pttl := toInt(res[1]); pttl > 0 {
			resetSec = (pttl + 999) / 1000
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Abort(c, http.StatusTooManyRequests, cfg.message, nil)
			return
		}
		c.Next()
	}
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		i, _ := strconv.Atoi(x)
		return i
	}
	return 0
}
