package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
	repo "github.com/oksasatya/prevently-api/internal/domain/repository"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

type AuthService struct {
	Users      repo.UserRepository
	Audit      repo.AuditRepository
	JWT        *helpers.JWTManager
	Sessions   SessionStore
	SessionTTL time.Duration
	Files      FileStore
	Notify     *Notifier
	Logger     *logrus.Logger
	Now        func() time.Time
}

func NewAuthService(users repo.UserRepository, audit repo.AuditRepository, jwt *helpers.JWTManager, sessions SessionStore, sessionTTL time.Duration, files FileStore, notify *Notifier, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:      users,
		Audit:      audit,
		JWT:        jwt,
		Sessions:   sessions,
		SessionTTL: sessionTTL,
		Files:      files,
		Notify:     notify,
		Logger:     logger,
		Now:        utcNow,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type RegisterInput struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	HealthProfile *entity.HealthProfile
}

type UpdateDetailsInput struct {
	FirstName     *string
	LastName      *string
	Email         *string
	FamilyRole    *string
	HealthProfile *entity.HealthProfile
	Preferences   *entity.Preferences
}

// UserView is the public representation of an account with derived fields and populated family members.
type UserView struct {
	*entity.User
	FullName      string                       `json:"fullName"`
	Age           *int                         `json:"age,omitempty"`
	BMI           *float64                     `json:"bmi,omitempty"`
	FamilyMembers []entity.FamilyMemberSummary `json:"familyMembers"`
}

func (s *AuthService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func ParseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func (s *AuthService) audit(ctx context.Context, userID, email, action string, meta RequestMeta, md map[string]any) {
	if s.Audit == nil {
		return
	}
	entry := &entity.AuditLog{UserID: userID, Email: email, Action: action, IP: meta.IP, UserAgent: meta.UserAgent, Metadata: md}
	if err := s.Audit.Insert(ctx, entry); err != nil {
		s.log().WithError(err).WithField("action", action).Warn("audit insert failed")
	}
}

func (s *AuthService) userByID(ctx context.Context, userID string) (*entity.User, error) {
	oid, err := ParseObjectID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u, err := s.Users.GetByID(ctx, oid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// ActiveUser loads the user behind a token and rejects deactivated accounts.
func (s *AuthService) ActiveUser(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records the session.
func (s *AuthService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	uid := u.ID.Hex()
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(uid, sid)
	if err != nil {
		s.log().WithError(err).WithField("user_id", uid).Error("generate access token failed")
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(uid, sid)
	if err != nil {
		s.log().WithError(err).WithField("user_id", uid).Error("generate refresh token failed")
		return TokenPair{}, err
	}

	if s.Sessions != nil {
		sess := entity.Session{UserID: uid, Email: u.Email, Name: u.FullName(), SID: sid, CreatedAt: s.Now()}
		ttl := s.SessionTTL
		if ttl <= 0 {
			ttl = s.JWT.RefreshTTL
		}
		if err := s.Sessions.Save(ctx, sess, ttl); err != nil {
			s.log().WithError(err).WithField("user_id", uid).Warn("session save failed")
		}
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// CheckSession reports whether sid is the user's current session. Without a store every sid is accepted.
func (s *AuthService) CheckSession(ctx context.Context, userID, sid string) error {
	if s.Sessions == nil {
		return nil
	}
	sess, err := s.Sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.SID != sid {
		return ErrSessionExpired
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*entity.User, TokenPair, error) {
	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return nil, TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.Now()
	u := entity.NewUser(in.Email, hash, in.FirstName, in.LastName, now)
	if in.HealthProfile != nil {
		u.HealthProfile = mergeHealthProfile(u.HealthProfile, *in.HealthProfile)
	}
	u.LastLogin = &now
	u.AddXP(entity.XPRegistration)
	u.TouchActivity(now)

	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, TokenPair{}, ErrEmailTaken
		}
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditRegister, meta, nil)
	s.Notify.Welcome(ctx, u, meta)
	s.log().WithFields(logrus.Fields{"user_id": u.ID.Hex()}).Info("user registered")
	return u, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*entity.User, TokenPair, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.audit(ctx, "", entity.NormalizeEmail(email), entity.AuditLoginFailed, meta, map[string]any{"reason": "unknown_email"})
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditLoginFailed, meta, map[string]any{"reason": "bad_password"})
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditLoginFailed, meta, map[string]any{"reason": "inactive"})
		return nil, TokenPair{}, ErrAccountInactive
	}

	now := s.Now()
	firstToday := u.LastLogin == nil || !entity.SameDay(*u.LastLogin, now)
	u.TouchActivity(now)
	u.LastLogin = &now
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, TokenPair{}, fmt.Errorf("update last login: %w", err)
	}
	if firstToday {
		g, err := s.Users.AwardXP(ctx, u.ID, entity.XPDailyLogin)
		if err != nil {
			s.log().WithError(err).WithField("user_id", u.ID.Hex()).Warn("award login xp failed")
		} else {
			u.SyncXP(g)
		}
	}

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditLogin, meta, nil)
	return u, pair, nil
}

// Refresh rotates the token pair. The refresh token must belong to the current session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*entity.User, TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	u, err := s.ActiveUser(ctx, claims.UserID)
	if err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if err := s.CheckSession(ctx, claims.UserID, claims.SessionID); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditRefresh, meta, nil)
	return u, pair, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string, meta RequestMeta) error {
	if s.Sessions != nil && userID != "" {
		if err := s.Sessions.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	if userID != "" {
		s.audit(ctx, userID, "", entity.AuditLogout, meta, nil)
	}
	return nil
}

func (s *AuthService) familySummaries(ctx context.Context, u *entity.User) ([]entity.FamilyMemberSummary, error) {
	out := make([]entity.FamilyMemberSummary, 0, len(u.FamilyMembers))
	if len(u.FamilyMembers) == 0 {
		return out, nil
	}
	members, err := s.Users.GetManyByIDs(ctx, u.FamilyMembers)
	if err != nil {
		return nil, fmt.Errorf("load family: %w", err)
	}
	byID := make(map[primitive.ObjectID]*entity.User, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	// keep the order the links were made in
	for _, id := range u.FamilyMembers {
		if m, ok := byID[id]; ok {
			out = append(out, m.Summary())
		}
	}
	return out, nil
}

// View builds the public projection of u.
func (s *AuthService) View(ctx context.Context, u *entity.User) (*UserView, error) {
	family, err := s.familySummaries(ctx, u)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	return &UserView{User: u, FullName: u.FullName(), Age: u.Age(now), BMI: u.BMI(), FamilyMembers: family}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*UserView, error) {
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.View(ctx, u)
}

func (s *AuthService) UpdateDetails(ctx context.Context, userID string, in UpdateDetailsInput, meta RequestMeta) (*entity.User, error) {
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, 6)
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
		changed = append(changed, "firstName")
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
		changed = append(changed, "lastName")
	}
	if in.Email != nil {
		email := entity.NormalizeEmail(*in.Email)
		if email != u.Email {
			other, err := s.Users.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != u.ID:
				return nil, ErrEmailTaken
			case err != nil && !errors.Is(err, repo.ErrNotFound):
				return nil, fmt.Errorf("lookup email: %w", err)
			}
			u.Email = email
			changed = append(changed, "email")
		}
	}
	if in.FamilyRole != nil {
		u.FamilyRole = *in.FamilyRole
		changed = append(changed, "familyRole")
	}
	if in.HealthProfile != nil {
		u.HealthProfile = mergeHealthProfile(u.HealthProfile, *in.HealthProfile)
		changed = append(changed, "healthProfile")
	}
	if in.Preferences != nil {
		u.Preferences = *in.Preferences
		if u.Preferences.Notifications.ReminderTimes == nil {
			u.Preferences.Notifications.ReminderTimes = []string{}
		}
		changed = append(changed, "preferences")
	}

	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditProfileUpdated, meta, map[string]any{"fields": changed})
	return u, nil
}

// UpdatePassword replaces the password and rotates the session so other devices are signed out.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, next string, meta RequestMeta) (*entity.User, TokenPair, error) {
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, current) {
		return nil, TokenPair{}, ErrPasswordMismatch
	}
	hash, err := helpers.HashPassword(next)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, TokenPair{}, fmt.Errorf("update password: %w", err)
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	now := s.Now()
	s.audit(ctx, u.ID.Hex(), u.Email, entity.AuditPasswordChanged, meta, nil)
	s.Notify.PasswordChanged(ctx, u, now, meta)
	return u, pair, nil
}

// DeleteAccount deactivates the account after confirming the password. Data is kept.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, password string, meta RequestMeta) error {
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return ErrPasswordMismatch
	}
	u.IsActive = false
	if err := s.Users.Update(ctx, u); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if s.Sessions != nil {
		if err := s.Sessions.Delete(ctx, userID); err != nil {
			s.log().WithError(err).WithField("user_id", userID).Warn("session delete failed")
		}
	}
	s.audit(ctx, userID, u.Email, entity.AuditAccountDeleted, meta, nil)
	s.Notify.AccountDeactivated(ctx, u, s.Now(), meta)
	return nil
}

// AddFamilyMember links two accounts in both directions. If the reverse link fails the forward link is undone.
func (s *AuthService) AddFamilyMember(ctx context.Context, userID, email string, meta RequestMeta) (*entity.FamilyMemberSummary, error) {
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	member, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrFamilyMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	if !member.IsActive {
		return nil, ErrFamilyMemberNotFound
	}
	if member.ID == u.ID {
		return nil, ErrCannotAddSelf
	}
	if u.HasFamilyMember(member.ID) {
		return nil, ErrAlreadyFamily
	}

	if err := s.Users.AddFamilyMember(ctx, u.ID, member.ID); err != nil {
		return nil, fmt.Errorf("link family member: %w", err)
	}
	if err := s.Users.AddFamilyMember(ctx, member.ID, u.ID); err != nil {
		if cerr := s.Users.RemoveFamilyMember(ctx, u.ID, member.ID); cerr != nil {
			s.log().WithError(cerr).WithFields(logrus.Fields{"user_id": userID, "member_id": member.ID.Hex()}).Error("family link compensation failed")
		}
		return nil, fmt.Errorf("link family member back: %w", err)
	}

	s.audit(ctx, userID, u.Email, entity.AuditFamilyAdded, meta, map[string]any{"member_id": member.ID.Hex()})
	s.Notify.FamilyMemberAdded(ctx, member, u, s.Now())
	summary := member.Summary()
	return &summary, nil
}

func (s *AuthService) ListFamily(ctx context.Context, userID string) ([]entity.FamilyMemberSummary, error) {
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.familySummaries(ctx, u)
}

// Activity returns the most recent audit entries of the user.
func (s *AuthService) Activity(ctx context.Context, userID string, limit int) ([]entity.AuditLog, error) {
	if s.Audit == nil {
		return []entity.AuditLog{}, nil
	}
	return s.Audit.ListByUser(ctx, userID, limit)
}

var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UploadAvatar stores the image and points the profile at it. The previous avatar is removed best-effort.
func (s *AuthService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.Files == nil {
		return nil, ErrStorageUnavailable
	}
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedFile
	}
	if e := filepath.Ext(filename); e != "" {
		ext = e
	}
	u, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.Files.Upload(ctx, helpers.ObjectPath("avatars", userID, uuid.NewString(), ext), contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	previous := u.Avatar
	u.Avatar = url
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	if previous != "" {
		if err := s.Files.DeleteURL(ctx, previous); err != nil {
			s.log().WithError(err).WithField("user_id", userID).Warn("old avatar delete failed")
		}
	}
	return u, nil
}

// mergeHealthProfile overlays the fields set in in onto base.
func mergeHealthProfile(base, in entity.HealthProfile) entity.HealthProfile {
	if in.Height != nil {
		base.Height = in.Height
	}
	if in.Weight != nil {
		base.Weight = in.Weight
	}
	if in.DateOfBirth != nil {
		base.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != "" {
		base.Gender = in.Gender
	}
	if in.BloodType != "" {
		base.BloodType = in.BloodType
	}
	if in.Allergies != nil {
		base.Allergies = in.Allergies
	}
	if in.Medications != nil {
		base.Medications = in.Medications
	}
	if in.ChronicConditions != nil {
		base.ChronicConditions = in.ChronicConditions
	}
	if in.EmergencyContact != nil {
		base.EmergencyContact = in.EmergencyContact
	}
	return base
}
