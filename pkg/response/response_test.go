package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func TestSuccessWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Success(c, http.StatusCreated, map[string]int{"n": 1}, "created", nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var body struct {
		Status    int            `json:"status"`
		Success   bool           `json:"success"`
		Message   string         `json:"message"`
		RequestID string         `json:"request_id"`
		Data      map[string]int `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Status != 201 || body.Message != "created" || body.RequestID != "req-1" || body.Data["n"] != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestErrorDefaultsToBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	resp := Error[any](c, 0, "invalid payload", map[string]string{"email": "is required"})

	if w.Code != http.StatusBadRequest || resp.Status != http.StatusBadRequest || resp.Success {
		t.Fatalf("unexpected error response code=%d resp=%+v", w.Code, resp)
	}
}

func TestAbortStopsChain(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Abort(c, http.StatusForbidden, "forbidden", nil)

	if !c.IsAborted() || w.Code != http.StatusForbidden {
		t.Fatalf("expected aborted 403, got aborted=%v code=%d", c.IsAborted(), w.Code)
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name                 string
		page, limit          int
		total                int64
		pages                int
		hasNext, hasPrevious bool
	}{
		{name: "empty", page: 1, limit: 20, total: 0, pages: 0},
		{name: "first of three", page: 1, limit: 10, total: 25, pages: 3, hasNext: true},
		{name: "middle", page: 2, limit: 10, total: 25, pages: 3, hasNext: true, hasPrevious: true},
		{name: "last", page: 3, limit: 10, total: 25, pages: 3, hasPrevious: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.limit, tc.total)
			if p.Pages != tc.pages || p.HasNext != tc.hasNext || p.HasPrev != tc.hasPrevious {
				t.Fatalf("unexpected pagination %+v", p)
			}
		})
	}
}
