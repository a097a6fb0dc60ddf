package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/pkg/response"
)

// openUpload reads the multipart file in field under a size cap. On failure it writes the response
// (413 when the cap is hit, 400 otherwise) and returns ok=false.
func openUpload(c *gin.Context, field string, maxBytes int64) (f multipart.File, fh *multipart.FileHeader, ok bool) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error[any](c, http.StatusRequestEntityTooLarge, "file too large", map[string]any{"maxBytes": maxBytes})
			return nil, nil, false
		}
		response.Error[any](c, http.StatusBadRequest, field+" file is required", nil)
		return nil, nil, false
	}
	f, err = fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read upload", nil)
		return nil, nil, false
	}
	return f, fh, true
}

// statusFor maps application errors to an HTTP status and a client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, application.ErrAccountInactive),
		errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, application.ErrUserNotFound),
		errors.Is(err, application.ErrFamilyMemberNotFound),
		errors.Is(err, application.ErrSymptomNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, application.ErrEmailTaken),
		errors.Is(err, application.ErrPasswordMismatch),
		errors.Is(err, application.ErrCannotAddSelf),
		errors.Is(err, application.ErrAlreadyFamily),
		errors.Is(err, application.ErrInvalidID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, application.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, application.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// fail writes the error envelope for err. Unexpected errors are logged and not echoed back.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).Error("request failed")
	}
	response.Error[any](c, status, msg, nil)
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
