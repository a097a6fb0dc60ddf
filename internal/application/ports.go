package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

// SessionStore holds the single active session per user.
type SessionStore interface {
	Save(ctx context.Context, sess entity.Session, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*entity.Session, error)
	Delete(ctx context.Context, userID string) error
}

// AnalyticsCache is versioned per user. Get reports the version it read under and Set only
// stores under that version, so a result computed before an Invalidate is never served after it.
type AnalyticsCache interface {
	Get(ctx context.Context, userID string, period int) (a *entity.SymptomAnalytics, version int64, ok bool, err error)
	Set(ctx context.Context, userID string, period int, version int64, a *entity.SymptomAnalytics, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

type FileStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	DeleteURL(ctx context.Context, url string) error
}

type SymptomSearcher interface {
	Put(ctx context.Context, s *entity.SymptomLog) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, userID, q string, size int) ([]string, error)
}

// EmailQueue is satisfied by helpers.RabbitPublisher.
type EmailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// RequestMeta carries caller details used for auditing and notifications.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func utcNow() time.Time { return time.Now().UTC() }
