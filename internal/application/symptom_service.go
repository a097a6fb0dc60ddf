package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
	repo "github.com/oksasatya/prevently-api/internal/domain/repository"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

const (
	historyForAnalysis = 50
	historyForInsights = 100
	trendingLimit      = 10
	DefaultPeriodDays  = 30
	MaxPeriodDays      = 365
)

var (
	symptomsLogged  = expvar.NewInt("symptoms_logged")
	analyticsHits   = expvar.NewInt("analytics_cache_hits")
	analyticsMisses = expvar.NewInt("analytics_cache_misses")
	searchFallbacks = expvar.NewInt("symptom_search_fallbacks")
)

type SymptomService struct {
	Logs     repo.SymptomLogRepository
	Users    repo.UserRepository
	Search   SymptomSearcher
	Cache    AnalyticsCache
	CacheTTL time.Duration
	Files    FileStore
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewSymptomService(logs repo.SymptomLogRepository, users repo.UserRepository, search SymptomSearcher, cache AnalyticsCache, cacheTTL time.Duration, files FileStore, logger *logrus.Logger) *SymptomService {
	return &SymptomService{
		Logs:     logs,
		Users:    users,
		Search:   search,
		Cache:    cache,
		CacheTTL: cacheTTL,
		Files:    files,
		Logger:   logger,
		Now:      utcNow,
	}
}

// UpdateSymptomInput lists the fields a user may change on an existing log. Nil means unchanged.
type UpdateSymptomInput struct {
	SymptomName      *string
	Category         *string
	Severity         *int
	Impact           *entity.Impact
	Duration         *int
	Frequency        *string
	Onset            *string
	Description      *string
	Notes            *string
	Context          *entity.SymptomContext
	Tags             []string
	Resolved         *bool
	FollowUpRequired *bool
	LinkedSymptoms   []string
}

// SymptomView is a log with derived fields and its linked logs resolved.
type SymptomView struct {
	*entity.SymptomLog
	LinkedSymptoms []entity.LinkedSymptomSummary `json:"linkedSymptoms"`
	OverallImpact  int                           `json:"overallImpact"`
	AgeInDays      int                           `json:"ageInDays"`
}

type SearchResult struct {
	Logs   []*entity.SymptomLog
	Total  int64
	Source string // "elasticsearch" or "database"
}

func (s *SymptomService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// afterWrite keeps the search index and analytics cache in step with the store. Failures are logged only.
func (s *SymptomService) afterWrite(ctx context.Context, userID primitive.ObjectID, indexed *entity.SymptomLog, removedID string) {
	if s.Search != nil {
		var err error
		if indexed != nil {
			err = s.Search.Put(ctx, indexed)
		} else if removedID != "" {
			err = s.Search.Remove(ctx, removedID)
		}
		if err != nil {
			s.log().WithError(err).WithField("user_id", userID.Hex()).Warn("symptom index sync failed")
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, userID.Hex()); err != nil {
			s.log().WithError(err).WithField("user_id", userID.Hex()).Warn("analytics cache invalidate failed")
		}
	}
}

func (s *SymptomService) linkedIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		oid, err := ParseObjectID(id)
		if err != nil {
			return nil, fmt.Errorf("linked symptom %q: %w", id, ErrInvalidID)
		}
		if !seen[oid] {
			seen[oid] = true
			out = append(out, oid)
		}
	}
	return out, nil
}

// Create stores a new log for userID with its analysis and awards XP.
func (s *SymptomService) Create(ctx context.Context, userID string, in *entity.SymptomLog, userAgent string) (*entity.SymptomLog, error) {
	uid, err := ParseObjectID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	now := s.Now()

	in.ID = primitive.NilObjectID
	in.UserID = uid
	in.CreatedAt = time.Time{}
	resolved := in.Resolved
	in.Resolved, in.ResolvedAt = false, nil
	in.Normalize(now)
	in.SetResolved(resolved, now)
	if in.DeviceInfo == nil && userAgent != "" {
		in.DeviceInfo = &entity.DeviceInfo{Platform: "web", Version: "1.0.0", UserAgent: userAgent}
	}

	history, err := s.Logs.Recent(ctx, uid, historyForAnalysis)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	in.Analysis = AnalyzeSymptom(in, history, now)

	if err := s.Logs.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("create symptom: %w", err)
	}
	symptomsLogged.Add(1)

	if _, err := s.Users.AwardXP(ctx, uid, entity.XPSymptomLog); err != nil {
		s.log().WithError(err).WithField("user_id", userID).Warn("award xp failed")
	}
	if u, err := s.Users.GetByID(ctx, uid); err == nil {
		u.TouchActivity(now)
		if err := s.Users.Update(ctx, u); err != nil {
			s.log().WithError(err).WithField("user_id", userID).Warn("update streak failed")
		}
	} else {
		s.log().WithError(err).WithField("user_id", userID).Warn("load user for streak failed")
	}

	s.afterWrite(ctx, uid, in, "")
	return in, nil
}

func (s *SymptomService) List(ctx context.Context, f repo.SymptomFilter, p repo.Page) ([]*entity.SymptomLog, int64, error) {
	logs, total, err := s.Logs.List(ctx, f, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list symptoms: %w", err)
	}
	return logs, total, nil
}

func (s *SymptomService) owned(ctx context.Context, userID, id string) (primitive.ObjectID, *entity.SymptomLog, error) {
	uid, err := ParseObjectID(userID)
	if err != nil {
		return uid, nil, ErrSymptomNotFound
	}
	oid, err := ParseObjectID(id)
	if err != nil {
		return uid, nil, ErrSymptomNotFound
	}
	l, err := s.Logs.GetByID(ctx, uid, oid)
	if errors.Is(err, repo.ErrNotFound) {
		return uid, nil, ErrSymptomNotFound
	}
	if err != nil {
		return uid, nil, fmt.Errorf("load symptom: %w", err)
	}
	return uid, l, nil
}

func (s *SymptomService) Get(ctx context.Context, userID, id string) (*SymptomView, error) {
	uid, l, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	view := &SymptomView{
		SymptomLog:     l,
		LinkedSymptoms: []entity.LinkedSymptomSummary{},
		OverallImpact:  l.OverallImpact(),
		AgeInDays:      l.AgeInDays(s.Now()),
	}
	if len(l.LinkedSymptoms) > 0 {
		linked, _, err := s.Logs.List(ctx, repo.SymptomFilter{UserID: uid, IDs: l.LinkedSymptoms}, repo.Page{})
		if err != nil {
			return nil, fmt.Errorf("load linked symptoms: %w", err)
		}
		for _, ls := range linked {
			view.LinkedSymptoms = append(view.LinkedSymptoms, ls.Summary())
		}
	}
	return view, nil
}

func (s *SymptomService) Update(ctx context.Context, userID, id string, in UpdateSymptomInput) (*entity.SymptomLog, error) {
	uid, l, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	now := s.Now()

	if in.SymptomName != nil {
		l.SymptomName = *in.SymptomName
	}
	if in.Category != nil {
		l.Category = *in.Category
	}
	if in.Severity != nil {
		l.Severity = *in.Severity
	}
	if in.Impact != nil {
		l.Impact = *in.Impact
	}
	if in.Duration != nil {
		l.Duration = *in.Duration
	}
	if in.Frequency != nil {
		l.Frequency = *in.Frequency
	}
	if in.Onset != nil {
		l.Onset = *in.Onset
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Notes != nil {
		l.Notes = *in.Notes
	}
	if in.Context != nil {
		l.Context = *in.Context
	}
	if in.Tags != nil {
		l.Tags = in.Tags
	}
	if in.FollowUpRequired != nil {
		l.FollowUpRequired = *in.FollowUpRequired
	}
	if in.LinkedSymptoms != nil {
		ids, err := s.linkedIDs(in.LinkedSymptoms)
		if err != nil {
			return nil, err
		}
		l.LinkedSymptoms = ids
	}
	if in.Resolved != nil {
		l.SetResolved(*in.Resolved, now)
	}
	l.Normalize(now)

	if err := s.Logs.Update(ctx, l); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSymptomNotFound
		}
		return nil, fmt.Errorf("update symptom: %w", err)
	}
	s.afterWrite(ctx, uid, l, "")
	return l, nil
}

func (s *SymptomService) Delete(ctx context.Context, userID, id string) error {
	uid, l, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Logs.Delete(ctx, uid, l.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSymptomNotFound
		}
		return fmt.Errorf("delete symptom: %w", err)
	}
	s.afterWrite(ctx, uid, nil, l.ID.Hex())
	return nil
}

// ClampPeriod keeps the analytics window within 1..365 days.
func ClampPeriod(days int) int {
	if days < 1 {
		return DefaultPeriodDays
	}
	if days > MaxPeriodDays {
		return MaxPeriodDays
	}
	return days
}

// Analytics aggregates the last period days, served from cache when fresh.
func (s *SymptomService) Analytics(ctx context.Context, userID string, period int) (*entity.SymptomAnalytics, error) {
	uid, err := ParseObjectID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	period = ClampPeriod(period)

	var version int64
	cacheable := s.Cache != nil
	if s.Cache != nil {
		cached, ver, ok, err := s.Cache.Get(ctx, userID, period)
		if err != nil {
			cacheable = false
			s.log().WithError(err).WithField("user_id", userID).Warn("analytics cache read failed")
		}
		version = ver
		if ok {
			analyticsHits.Add(1)
			return cached, nil
		}
		analyticsMisses.Add(1)
	}

	since := s.Now().Add(-time.Duration(period) * 24 * time.Hour)
	logs, err := s.Logs.Since(ctx, uid, since)
	if err != nil {
		return nil, fmt.Errorf("load period: %w", err)
	}
	a := BuildAnalytics(logs)

	if cacheable && s.CacheTTL > 0 {
		if err := s.Cache.Set(ctx, userID, period, version, a, s.CacheTTL); err != nil {
			s.log().WithError(err).WithField("user_id", userID).Warn("analytics cache write failed")
		}
	}
	return a, nil
}

func (s *SymptomService) Insights(ctx context.Context, userID string) (*entity.Insights, error) {
	uid, err := ParseObjectID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	logs, err := s.Logs.Recent(ctx, uid, historyForInsights)
	if err != nil {
		return nil, fmt.Errorf("load recent: %w", err)
	}
	return BuildInsights(logs), nil
}

func (s *SymptomService) Trending(ctx context.Context, userID string, days int) ([]repo.TrendingSymptom, error) {
	uid, err := ParseObjectID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	since := s.Now().Add(-time.Duration(ClampPeriod(days)) * 24 * time.Hour)
	out, err := s.Logs.Trending(ctx, uid, since, trendingLimit)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	return out, nil
}

// SearchLogs uses the search index when available and falls back to a database text match.
func (s *SymptomService) SearchLogs(ctx context.Context, userID, q string, p repo.Page) (*SearchResult, error) {
	uid, err := ParseObjectID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	q = strings.TrimSpace(q)

	if s.Search != nil && q != "" {
		logs, err := s.indexSearch(ctx, uid, q, p.Limit)
		if err == nil {
			return &SearchResult{Logs: logs, Total: int64(len(logs)), Source: "elasticsearch"}, nil
		}
		searchFallbacks.Add(1)
		s.log().WithError(err).WithField("user_id", userID).Warn("index search failed, using database")
	}

	logs, total, err := s.Logs.List(ctx, repo.SymptomFilter{UserID: uid, Search: q}, p)
	if err != nil {
		return nil, fmt.Errorf("search symptoms: %w", err)
	}
	return &SearchResult{Logs: logs, Total: total, Source: "database"}, nil
}

// indexSearch loads the logs the index matched, keeping the index ranking.
func (s *SymptomService) indexSearch(ctx context.Context, uid primitive.ObjectID, q string, size int) ([]*entity.SymptomLog, error) {
	ids, err := s.Search.Search(ctx, uid.Hex(), q, size)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entity.SymptomLog{}, nil
	}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	found, _, err := s.Logs.List(ctx, repo.SymptomFilter{UserID: uid, IDs: oids}, repo.Page{})
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*entity.SymptomLog, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	out := make([]*entity.SymptomLog, 0, len(found))
	for _, oid := range oids {
		if l, ok := byID[oid]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

var attachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

// AddAttachment uploads a file and appends its URL to the log.
func (s *SymptomService) AddAttachment(ctx context.Context, userID, id string, r io.Reader, filename, contentType string) (*entity.SymptomLog, error) {
	if s.Files == nil {
		return nil, ErrStorageUnavailable
	}
	if !attachmentTypes[contentType] {
		return nil, ErrUnsupportedFile
	}
	uid, l, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	path := helpers.ObjectPath("attachments/"+userID, l.ID.Hex(), uuid.NewString(), filepath.Ext(filename))
	url, err := s.Files.Upload(ctx, path, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	l.Attachments = append(l.Attachments, url)
	l.UpdatedAt = s.Now()
	if err := s.Logs.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("save attachment: %w", err)
	}
	s.afterWrite(ctx, uid, l, "")
	return l, nil
}
