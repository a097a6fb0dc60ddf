package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

// SessionStore keeps one session hash per user under user:session:<id>.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func SessionKey(userID string) string {
	return "user:session:" + userID
}

func (s *SessionStore) Save(ctx context.Context, sess entity.Session, ttl time.Duration) error {
	key := SessionKey(sess.UserID)
	fields := map[string]any{
		"user_id":    sess.UserID,
		"email":      sess.Email,
		"name":       sess.Name,
		"sid":        sess.SID,
		"created_at": sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns nil without error when no session exists.
func (s *SessionStore) Get(ctx context.Context, userID string) (*entity.Session, error) {
	data, err := s.rdb.HGetAll(ctx, SessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	created, _ := time.Parse(time.RFC3339Nano, data["created_at"])
	return &entity.Session{
		UserID:    data["user_id"],
		Email:     data["email"],
		Name:      data["name"],
		SID:       data["sid"],
		CreatedAt: created,
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, SessionKey(userID)).Err()
}
