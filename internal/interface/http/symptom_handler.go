package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/internal/domain/entity"
	repo "github.com/oksasatya/prevently-api/internal/domain/repository"
	"github.com/oksasatya/prevently-api/pkg/response"
	"github.com/oksasatya/prevently-api/pkg/validation"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxPage          = math.MaxInt32 / maxPageLimit
)

type SymptomHandler struct {
	Svc            *application.SymptomService
	Logger         *logrus.Logger
	MaxUploadBytes int64
}

func NewSymptomHandler(svc *application.SymptomService, logger *logrus.Logger, maxUpload int64) *SymptomHandler {
	return &SymptomHandler{Svc: svc, Logger: logger, MaxUploadBytes: maxUpload}
}

type createSymptomRequest struct {
	SymptomName      string                `json:"symptomName" binding:"required,max=100"`
	Category         string                `json:"category" binding:"omitempty,symptomcategory"`
	Severity         int                   `json:"severity" binding:"required,score"`
	Impact           entity.Impact         `json:"impact"`
	Duration         int                   `json:"duration" binding:"min=0"`
	Frequency        string                `json:"frequency" binding:"omitempty,symptomfrequency"`
	Onset            string                `json:"onset" binding:"omitempty,symptomonset"`
	Description      string                `json:"description" binding:"required,max=1000"`
	Notes            string                `json:"notes" binding:"max=500"`
	Context          entity.SymptomContext `json:"context"`
	Tags             []string              `json:"tags"`
	FollowUpRequired bool                  `json:"followUpRequired"`
	Resolved         bool                  `json:"resolved"`
	LoggedAt         *time.Time            `json:"loggedAt"`
	Source           string                `json:"source" binding:"omitempty,symptomsource"`
	LinkedSymptoms   []string              `json:"linkedSymptoms"`
}

type updateSymptomRequest struct {
	SymptomName      *string                `json:"symptomName" binding:"omitempty,min=1,max=100"`
	Category         *string                `json:"category" binding:"omitempty,symptomcategory"`
	Severity         *int                   `json:"severity" binding:"omitempty,score"`
	Impact           *entity.Impact         `json:"impact"`
	Duration         *int                   `json:"duration" binding:"omitempty,min=0"`
	Frequency        *string                `json:"frequency" binding:"omitempty,symptomfrequency"`
	Onset            *string                `json:"onset" binding:"omitempty,symptomonset"`
	Description      *string                `json:"description" binding:"omitempty,min=1,max=1000"`
	Notes            *string                `json:"notes" binding:"omitempty,max=500"`
	Context          *entity.SymptomContext `json:"context"`
	Tags             []string               `json:"tags"`
	Resolved         *bool                  `json:"resolved"`
	FollowUpRequired *bool                  `json:"followUpRequired"`
	LinkedSymptoms   []string               `json:"linkedSymptoms"`
}

func (r createSymptomRequest) toEntity() (*entity.SymptomLog, error) {
	s := &entity.SymptomLog{
		SymptomName:      r.SymptomName,
		Category:         r.Category,
		Severity:         r.Severity,
		Impact:           r.Impact,
		Duration:         r.Duration,
		Frequency:        r.Frequency,
		Onset:            r.Onset,
		Description:      r.Description,
		Notes:            r.Notes,
		Context:          r.Context,
		Tags:             r.Tags,
		FollowUpRequired: r.FollowUpRequired,
		Resolved:         r.Resolved,
		Source:           r.Source,
	}
	if r.LoggedAt != nil {
		s.LoggedAt = r.LoggedAt.UTC()
	}
	for _, id := range r.LinkedSymptoms {
		oid, err := application.ParseObjectID(id)
		if err != nil {
			return nil, err
		}
		s.LinkedSymptoms = append(s.LinkedSymptoms, oid)
	}
	return s, nil
}

func parseDate(v string, endOfDay bool) (*time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

// listParams reads the list query. severity is a lower bound, like minSeverity.
func listParams(c *gin.Context, userID primitive.ObjectID) (repo.SymptomFilter, repo.Page, map[string]string) {
	bad := map[string]string{}
	p := repo.Page{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", defaultPageLimit)}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}

	f := repo.SymptomFilter{
		UserID:      userID,
		Category:    strings.TrimSpace(c.Query("category")),
		MinSeverity: queryInt(c, "minSeverity", 0),
		MaxSeverity: queryInt(c, "maxSeverity", 0),
		Search:      strings.TrimSpace(c.Query("search")),
		Tag:         strings.TrimSpace(c.Query("tag")),
	}
	if sev := queryInt(c, "severity", 0); sev > f.MinSeverity {
		f.MinSeverity = sev
	}
	var ok bool
	if f.DateFrom, ok = parseDate(c.Query("dateFrom"), false); !ok {
		bad["dateFrom"] = "must be a date (YYYY-MM-DD or RFC3339)"
	}
	if f.DateTo, ok = parseDate(c.Query("dateTo"), true); !ok {
		bad["dateTo"] = "must be a date (YYYY-MM-DD or RFC3339)"
	}
	if v := strings.TrimSpace(c.Query("resolved")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			bad["resolved"] = "must be true or false"
		} else {
			f.Resolved = &b
		}
	}
	return f, p, bad
}

func (h *SymptomHandler) userOID(c *gin.Context) (primitive.ObjectID, bool) {
	oid, err := application.ParseObjectID(c.GetString("userID"))
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return oid, false
	}
	return oid, true
}

func (h *SymptomHandler) Create(c *gin.Context) {
	var req createSymptomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in, err := req.toEntity()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"linkedSymptoms": "must contain valid ids"})
		return
	}
	s, err := h.Svc.Create(c.Request.Context(), c.GetString("userID"), in, c.GetHeader("User-Agent"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"symptom": s}, "symptom logged", nil)
}

func (h *SymptomHandler) List(c *gin.Context) {
	uid, ok := h.userOID(c)
	if !ok {
		return
	}
	f, p, bad := listParams(c, uid)
	if len(bad) > 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid query", bad)
		return
	}
	logs, total, err := h.Svc.List(c.Request.Context(), f, p)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"symptoms": logs}, "symptom logs", response.NewPagination(p.Page, p.Limit, total))
}

func (h *SymptomHandler) Get(c *gin.Context) {
	view, err := h.Svc.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"symptom": view}, "symptom log", nil)
}

func (h *SymptomHandler) Update(c *gin.Context) {
	var req updateSymptomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	s, err := h.Svc.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), application.UpdateSymptomInput{
		SymptomName:      req.SymptomName,
		Category:         req.Category,
		Severity:         req.Severity,
		Impact:           req.Impact,
		Duration:         req.Duration,
		Frequency:        req.Frequency,
		Onset:            req.Onset,
		Description:      req.Description,
		Notes:            req.Notes,
		Context:          req.Context,
		Tags:             req.Tags,
		Resolved:         req.Resolved,
		FollowUpRequired: req.FollowUpRequired,
		LinkedSymptoms:   req.LinkedSymptoms,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"symptom": s}, "symptom updated", nil)
}

func (h *SymptomHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{}, "symptom deleted", nil)
}

func (h *SymptomHandler) Analytics(c *gin.Context) {
	period := application.ClampPeriod(queryInt(c, "period", application.DefaultPeriodDays))
	a, err := h.Svc.Analytics(c.Request.Context(), c.GetString("userID"), period)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"analytics": a, "period": period}, "symptom analytics", nil)
}

func (h *SymptomHandler) Insights(c *gin.Context) {
	in, err := h.Svc.Insights(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"insights": in}, "symptom insights", nil)
}

func (h *SymptomHandler) Trending(c *gin.Context) {
	days := application.ClampPeriod(queryInt(c, "days", application.DefaultPeriodDays))
	out, err := h.Svc.Trending(c.Request.Context(), c.GetString("userID"), days)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trending": out, "days": days}, "trending symptoms", nil)
}

func (h *SymptomHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	p := repo.Page{Page: 1, Limit: queryInt(c, "limit", defaultPageLimit)}
	if p.Limit < 1 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	res, err := h.Svc.SearchLogs(c.Request.Context(), c.GetString("userID"), q, p)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"symptoms": res.Logs}, "search results", map[string]any{"total": res.Total, "source": res.Source})
}

func (h *SymptomHandler) AddAttachment(c *gin.Context) {
	f, fh, ok := openUpload(c, "file", h.MaxUploadBytes)
	if !ok {
		return
	}
	defer f.Close()

	s, err := h.Svc.AddAttachment(c.Request.Context(), c.GetString("userID"), c.Param("id"), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"symptom": s}, "attachment added", nil)
}
