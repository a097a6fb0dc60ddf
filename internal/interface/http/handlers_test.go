package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{application.ErrInvalidCredentials, http.StatusUnauthorized},
		{application.ErrAccountInactive, http.StatusUnauthorized},
		{application.ErrEmailTaken, http.StatusBadRequest},
		{application.ErrCannotAddSelf, http.StatusBadRequest},
		{application.ErrAlreadyFamily, http.StatusBadRequest},
		{application.ErrFamilyMemberNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", application.ErrSymptomNotFound), http.StatusNotFound},
		{application.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{application.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.New("mongo exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			if got, _ := statusFor(tc.err); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
	if _, msg := statusFor(errors.New("secret dsn in here")); msg != "internal server error" {
		t.Fatalf("internal errors must not leak, got %q", msg)
	}
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterValidation(t *testing.T) {
	h := &AuthHandler{}
	r := gin.New()
	r.POST("/register", h.Register)

	w := postJSON(r, "/register", map[string]any{
		"firstName":       "Ada",
		"lastName":        "Lovelace",
		"email":           "not-an-email",
		"password":        "abc",
		"confirmPassword": "abd",
		"healthProfile":   map[string]any{"bloodType": "Z+"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var details map[string]string
	if err := json.Unmarshal(decode(t, w).Error, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	for _, field := range []string{"email", "password", "confirmPassword", "bloodType"} {
		if _, ok := details[field]; !ok {
			t.Errorf("expected a message for %s, got %v", field, details)
		}
	}
}

func TestCreateSymptomValidation(t *testing.T) {
	h := &SymptomHandler{}
	r := gin.New()
	r.POST("/symptoms", h.Create)

	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing name", map[string]any{"severity": 3, "description": "x"}, "symptomName"},
		{"severity out of range", map[string]any{"symptomName": "a", "severity": 11, "description": "x"}, "severity"},
		{"bad category", map[string]any{"symptomName": "a", "severity": 3, "description": "x", "category": "spiritual"}, "category"},
		{"bad activity", map[string]any{"symptomName": "a", "severity": 3, "description": "x", "context": map[string]any{"activity": map[string]any{"type": "flying"}}}, "type"},
		{"too much sleep", map[string]any{"symptomName": "a", "severity": 3, "description": "x", "context": map[string]any{"lifestyle": map[string]any{"sleepHours": 30}}}, "sleepHours"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(r, "/symptoms", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var details map[string]string
			_ = json.Unmarshal(decode(t, w).Error, &details)
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("expected a message for %s, got %v", tc.field, details)
			}
		})
	}
}

func TestListParams(t *testing.T) {
	uid := primitive.NewObjectID()
	cases := []struct {
		name  string
		query string
		check func(t *testing.T, page, limit, minSev int, bad map[string]string)
	}{
		{"defaults", "", func(t *testing.T, page, limit, minSev int, bad map[string]string) {
			if page != 1 || limit != defaultPageLimit || minSev != 0 || len(bad) != 0 {
				t.Fatalf("unexpected %d %d %d %v", page, limit, minSev, bad)
			}
		}},
		{"clamped limit", "page=0&limit=500", func(t *testing.T, page, limit, _ int, _ map[string]string) {
			if page != 1 || limit != maxPageLimit {
				t.Fatalf("unexpected page %d limit %d", page, limit)
			}
		}},
		{"huge page is capped", "page=9223372036854775807&limit=100", func(t *testing.T, page, limit, _ int, _ map[string]string) {
			if page != maxPage || limit != maxPageLimit {
				t.Fatalf("unexpected page %d limit %d", page, limit)
			}
		}},
		{"severity is a lower bound", "severity=6&minSeverity=4", func(t *testing.T, _, _, minSev int, _ map[string]string) {
			if minSev != 6 {
				t.Fatalf("expected min severity 6, got %d", minSev)
			}
		}},
		{"bad date and flag", "dateFrom=yesterday&resolved=maybe", func(t *testing.T, _, _, _ int, bad map[string]string) {
			if bad["dateFrom"] == "" || bad["resolved"] == "" {
				t.Fatalf("expected query errors, got %v", bad)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/symptoms?"+tc.query, nil)
			f, p, bad := listParams(c, uid)
			if f.UserID != uid {
				t.Fatal("filter must be scoped to the caller")
			}
			tc.check(t, p.Page, p.Limit, f.MinSeverity, bad)
		})
	}
}

func TestParseDateEndOfDay(t *testing.T) {
	to, ok := parseDate("2024-05-10", true)
	if !ok || to.Hour() != 23 || to.Day() != 10 {
		t.Fatalf("expected end of day, got %v", to)
	}
	from, ok := parseDate("2024-05-10T08:30:00Z", false)
	if !ok || from.Hour() != 8 {
		t.Fatalf("expected RFC3339 time, got %v", from)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("no route to host") }

	r := gin.New()
	r.GET("/ok", NewHealthHandler("prevently", "1.0.0", "test", map[string]PingFunc{"mongo": up}).Health)
	r.GET("/bad", NewHealthHandler("prevently", "1.0.0", "test", map[string]PingFunc{"mongo": up, "redis": down}).Health)
	r.NoRoute(NotFound)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK || !decode(t, w).Success {
		t.Fatalf("expected healthy, got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if env := decode(t, w); w.Code != http.StatusNotFound || env.Message != "Route /api/nope not found" {
		t.Fatalf("unexpected 404 envelope %d %+v", w.Code, env)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := &SymptomHandler{}
	r := gin.New()
	r.GET("/search", h.Search)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=%20", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func multipartBody(t *testing.T, field string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "note.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(bytes.Repeat([]byte{'a'}, size))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestAddAttachmentUploadErrors(t *testing.T) {
	h := &SymptomHandler{MaxUploadBytes: 1024}
	r := gin.New()
	r.POST("/symptoms/:id/attachments", h.AddAttachment)

	cases := []struct {
		name  string
		field string
		size  int
		want  int
	}{
		{"too large", "file", 4096, http.StatusRequestEntityTooLarge},
		{"wrong field", "upload", 10, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.size)
			req := httptest.NewRequest(http.MethodPost, "/symptoms/abc/attachments", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}
