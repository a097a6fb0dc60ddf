package application

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
	repo "github.com/oksasatya/prevently-api/internal/domain/repository"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

func init() { helpers.PasswordCost = bcrypt.MinCost }

type stubUserRepo struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*entity.User
	addErrOn map[primitive.ObjectID]error
	removed  [][2]primitive.ObjectID
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[primitive.ObjectID]*entity.User{}, addErrOn: map[primitive.ObjectID]error{}}
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	c.FamilyMembers = append([]primitive.ObjectID(nil), u.FamilyMembers...)
	return &c
}

func (r *stubUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = entity.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *stubUserRepo) GetManyByIDs(_ context.Context, ids []primitive.ObjectID) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entity.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	c := cloneUser(u)
	c.FamilyMembers = cur.FamilyMembers
	c.SyncXP(cur.Gamification)
	r.users[u.ID] = c
	return nil
}

func (r *stubUserRepo) AwardXP(_ context.Context, userID primitive.ObjectID, points int) (entity.Gamification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return entity.Gamification{}, repo.ErrNotFound
	}
	u.AddXP(points)
	return u.Gamification, nil
}

func (r *stubUserRepo) AddFamilyMember(_ context.Context, userID, memberID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.addErrOn[userID]; err != nil {
		return err
	}
	u, ok := r.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	if !u.HasFamilyMember(memberID) {
		u.FamilyMembers = append(u.FamilyMembers, memberID)
	}
	return nil
}

func (r *stubUserRepo) RemoveFamilyMember(_ context.Context, userID, memberID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, [2]primitive.ObjectID{userID, memberID})
	u, ok := r.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	out := u.FamilyMembers[:0]
	for _, m := range u.FamilyMembers {
		if m != memberID {
			out = append(out, m)
		}
	}
	u.FamilyMembers = out
	return nil
}

type stubSymptomRepo struct {
	mu         sync.Mutex
	logs       map[primitive.ObjectID]*entity.SymptomLog
	trendSince time.Time
	trendLimit int
}

func newStubSymptomRepo() *stubSymptomRepo {
	return &stubSymptomRepo{logs: map[primitive.ObjectID]*entity.SymptomLog{}}
}

func (r *stubSymptomRepo) put(l *entity.SymptomLog) *entity.SymptomLog {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	r.logs[l.ID] = l
	return l
}

func (r *stubSymptomRepo) Create(_ context.Context, s *entity.SymptomLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.put(&c)
	s.ID = c.ID
	return nil
}

func (r *stubSymptomRepo) GetByID(_ context.Context, userID, id primitive.ObjectID) (*entity.SymptomLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.UserID != userID {
		return nil, repo.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (r *stubSymptomRepo) Update(_ context.Context, s *entity.SymptomLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[s.ID]
	if !ok || l.UserID != s.UserID {
		return repo.ErrNotFound
	}
	c := *s
	r.logs[s.ID] = &c
	return nil
}

func (r *stubSymptomRepo) Delete(_ context.Context, userID, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.logs, id)
	return nil
}

func (r *stubSymptomRepo) sorted(match func(*entity.SymptomLog) bool) []*entity.SymptomLog {
	out := []*entity.SymptomLog{}
	for _, l := range r.logs {
		if match(l) {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return out
}

func (r *stubSymptomRepo) List(_ context.Context, f repo.SymptomFilter, p repo.Page) ([]*entity.SymptomLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[primitive.ObjectID]bool{}
	for _, id := range f.IDs {
		ids[id] = true
	}
	all := r.sorted(func(l *entity.SymptomLog) bool {
		if l.UserID != f.UserID {
			return false
		}
		if len(ids) > 0 && !ids[l.ID] {
			return false
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(l.SymptomName+" "+l.Description), strings.ToLower(f.Search)) {
			return false
		}
		return true
	})
	total := int64(len(all))
	if p.Limit > 0 {
		start := int(p.Skip())
		if start > len(all) {
			start = len(all)
		}
		end := start + p.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (r *stubSymptomRepo) Recent(_ context.Context, userID primitive.ObjectID, limit int) ([]*entity.SymptomLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(func(l *entity.SymptomLog) bool { return l.UserID == userID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *stubSymptomRepo) Since(_ context.Context, userID primitive.ObjectID, since time.Time) ([]*entity.SymptomLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(l *entity.SymptomLog) bool { return l.UserID == userID && !l.LoggedAt.Before(since) }), nil
}

func (r *stubSymptomRepo) Trending(_ context.Context, _ primitive.ObjectID, since time.Time, limit int) ([]repo.TrendingSymptom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trendSince, r.trendLimit = since, limit
	return []repo.TrendingSymptom{}, nil
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func newStubSessions() *stubSessions { return &stubSessions{sessions: map[string]entity.Session{}} }

func (s *stubSessions) Save(_ context.Context, sess entity.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

func (s *stubSessions) Get(_ context.Context, userID string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *stubSessions) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

type stubAudit struct {
	mu      sync.Mutex
	entries []entity.AuditLog
}

func (a *stubAudit) Insert(_ context.Context, e *entity.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *stubAudit) ListByUser(_ context.Context, userID string, limit int) ([]entity.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []entity.AuditLog{}
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if a.entries[i].UserID == userID {
			out = append(out, a.entries[i])
		}
	}
	return out, nil
}

func (a *stubAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type stubQueue struct {
	mu   sync.Mutex
	jobs []any
}

func (q *stubQueue) PublishJSON(_ context.Context, body any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, body)
	return nil
}

type stubCache struct {
	entries     map[string]*entity.SymptomAnalytics
	versions    map[string]int64
	invalidated int
	misses      int
	onMiss      func()
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string]*entity.SymptomAnalytics{}, versions: map[string]int64{}}
}

func cacheKey(userID string, version int64, period int) string {
	return userID + ":" + strconv.FormatInt(version, 10) + ":" + strconv.Itoa(period)
}

func (c *stubCache) Get(_ context.Context, userID string, period int) (*entity.SymptomAnalytics, int64, bool, error) {
	ver := c.versions[userID]
	a, ok := c.entries[cacheKey(userID, ver, period)]
	if !ok {
		c.misses++
		if c.onMiss != nil {
			c.onMiss()
		}
	}
	return a, ver, ok, nil
}

func (c *stubCache) Set(_ context.Context, userID string, period int, version int64, a *entity.SymptomAnalytics, _ time.Duration) error {
	c.entries[cacheKey(userID, version, period)] = a
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, userID string) error {
	c.invalidated++
	c.versions[userID]++
	return nil
}

type stubFiles struct {
	uploaded []string
	deleted  []string
}

func (f *stubFiles) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://files.test/" + objectPath
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *stubFiles) DeleteURL(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type stubSearcher struct {
	ids     []string
	err     error
	put     int
	removed []string
}

func (s *stubSearcher) Put(context.Context, *entity.SymptomLog) error { s.put++; return nil }
func (s *stubSearcher) Remove(_ context.Context, id string) error {
	s.removed = append(s.removed, id)
	return nil
}
func (s *stubSearcher) Search(context.Context, string, string, int) ([]string, error) {
	return s.ids, s.err
}

var errBoom = errors.New("boom")
