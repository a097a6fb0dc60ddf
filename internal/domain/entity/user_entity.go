package entity

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// XPPerLevel is the amount of total XP needed to advance one level.
const XPPerLevel = 1000

// XP awards for user actions
const (
	XPRegistration = 100
	XPDailyLogin   = 10
	XPSymptomLog   = 25
)

type SubscriptionStatus string

const (
	SubscriptionFree    SubscriptionStatus = "free"
	SubscriptionPremium SubscriptionStatus = "premium"
	SubscriptionFamily  SubscriptionStatus = "family"
)

type EmergencyContact struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email        string `bson:"email,omitempty" json:"email,omitempty" binding:"omitempty,email"`
}

type HealthProfile struct {
	Height            *float64          `bson:"height,omitempty" json:"height,omitempty" binding:"omitempty,min=50,max=300"` // cm
	Weight            *float64          `bson:"weight,omitempty" json:"weight,omitempty" binding:"omitempty,min=1,max=1000"` // kg
	DateOfBirth       *time.Time        `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Gender            string            `bson:"gender,omitempty" json:"gender,omitempty" binding:"omitempty,gender"`
	BloodType         string            `bson:"bloodType,omitempty" json:"bloodType,omitempty" binding:"omitempty,bloodtype"`
	Allergies         []string          `bson:"allergies" json:"allergies"`
	Medications       []string          `bson:"medications" json:"medications"`
	ChronicConditions []string          `bson:"chronicConditions" json:"chronicConditions"`
	EmergencyContact  *EmergencyContact `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
}

type NotificationPrefs struct {
	Email         bool     `bson:"email" json:"email"`
	Push          bool     `bson:"push" json:"push"`
	SMS           bool     `bson:"sms" json:"sms"`
	ReminderTimes []string `bson:"reminderTimes" json:"reminderTimes"`
}

type PrivacyPrefs struct {
	ShareWithFamily  bool `bson:"shareWithFamily" json:"shareWithFamily"`
	ShareWithDoctors bool `bson:"shareWithDoctors" json:"shareWithDoctors"`
	DataExport       bool `bson:"dataExport" json:"dataExport"`
}

type AccessibilityPrefs struct {
	DarkMode      bool   `bson:"darkMode" json:"darkMode"`
	ReducedMotion bool   `bson:"reducedMotion" json:"reducedMotion"`
	FontSize      string `bson:"fontSize" json:"fontSize" binding:"omitempty,fontsize"`
	HighContrast  bool   `bson:"highContrast" json:"highContrast"`
}

type AIPrefs struct {
	PersonalizedTips    bool `bson:"personalizedTips" json:"personalizedTips"`
	VoiceInteraction    bool `bson:"voiceInteraction" json:"voiceInteraction"`
	PredictiveAnalytics bool `bson:"predictiveAnalytics" json:"predictiveAnalytics"`
}

type Preferences struct {
	Notifications NotificationPrefs  `bson:"notifications" json:"notifications"`
	Privacy       PrivacyPrefs       `bson:"privacy" json:"privacy"`
	Accessibility AccessibilityPrefs `bson:"accessibility" json:"accessibility"`
	AI            AIPrefs            `bson:"ai" json:"ai"`
}

// DefaultPreferences returns the preferences a new account starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPrefs{Email: true, Push: true, SMS: false, ReminderTimes: []string{"09:00", "13:00", "18:00"}},
		Privacy:       PrivacyPrefs{ShareWithFamily: true, ShareWithDoctors: false, DataExport: true},
		Accessibility: AccessibilityPrefs{FontSize: "medium"},
		AI:            AIPrefs{PersonalizedTips: true, VoiceInteraction: false, PredictiveAnalytics: true},
	}
}

type Streaks struct {
	Current      int       `bson:"current" json:"current"`
	Longest      int       `bson:"longest" json:"longest"`
	LastActivity time.Time `bson:"lastActivity" json:"lastActivity"`
}

type Gamification struct {
	Level        int      `bson:"level" json:"level"`
	XP           int      `bson:"xp" json:"xp"`
	TotalXP      int      `bson:"totalXp" json:"totalXp"`
	Streaks      Streaks  `bson:"streaks" json:"streaks"`
	Achievements []string `bson:"achievements" json:"achievements"`
	Badges       []string `bson:"badges" json:"badges"`
}

// User is the aggregate root for the account domain
// Passwords are stored as bcrypt hashes in PasswordHash and never serialized.
type User struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email              string               `bson:"email" json:"email"`
	PasswordHash       string               `bson:"passwordHash" json:"-"`
	FirstName          string               `bson:"firstName" json:"firstName"`
	LastName           string               `bson:"lastName" json:"lastName"`
	Avatar             string               `bson:"avatar" json:"avatar"`
	HealthProfile      HealthProfile        `bson:"healthProfile" json:"healthProfile"`
	Preferences        Preferences          `bson:"preferences" json:"preferences"`
	Gamification       Gamification         `bson:"gamification" json:"gamification"`
	FamilyMembers      []primitive.ObjectID `bson:"familyMembers" json:"familyMembers"`
	FamilyRole         string               `bson:"familyRole" json:"familyRole"`
	IsActive           bool                 `bson:"isActive" json:"isActive"`
	IsVerified         bool                 `bson:"isVerified" json:"isVerified"`
	LastLogin          *time.Time           `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	SubscriptionStatus SubscriptionStatus   `bson:"subscriptionStatus" json:"subscriptionStatus"`
	SubscriptionExpiry *time.Time           `bson:"subscriptionExpiry,omitempty" json:"subscriptionExpiry,omitempty"`
	CreatedAt          time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// NewUser builds an active free-tier account with default preferences.
func NewUser(email, passwordHash, firstName, lastName string, now time.Time) *User {
	return &User{
		Email:              NormalizeEmail(email),
		PasswordHash:       passwordHash,
		FirstName:          strings.TrimSpace(firstName),
		LastName:           strings.TrimSpace(lastName),
		HealthProfile:      HealthProfile{Allergies: []string{}, Medications: []string{}, ChronicConditions: []string{}},
		Preferences:        DefaultPreferences(),
		Gamification:       Gamification{Level: 1, Streaks: Streaks{LastActivity: now}, Achievements: []string{}, Badges: []string{}},
		FamilyMembers:      []primitive.ObjectID{},
		FamilyRole:         "other",
		IsActive:           true,
		SubscriptionStatus: SubscriptionFree,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AddXP adds points and advances the level; the level never goes down.
func (u *User) AddXP(points int) {
	u.Gamification.XP += points
	u.Gamification.TotalXP += points
	if lvl := u.Gamification.TotalXP/XPPerLevel + 1; lvl > u.Gamification.Level {
		u.Gamification.Level = lvl
	}
}

// SyncXP copies the stored xp, total and level onto u.
func (u *User) SyncXP(g Gamification) {
	u.Gamification.XP, u.Gamification.TotalXP, u.Gamification.Level = g.XP, g.TotalXP, g.Level
}

// TouchActivity updates the daily streak counters for activity at now.
func (u *User) TouchActivity(now time.Time) {
	s := &u.Gamification.Streaks
	last := s.LastActivity
	switch {
	case s.Current == 0:
		s.Current = 1
	case SameDay(last, now):
	case SameDay(last.AddDate(0, 0, 1), now):
		s.Current++
	default:
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastActivity = now
}

// Age returns the age in whole years at now, or nil when no birth date is known.
func (u *User) Age(now time.Time) *int {
	dob := u.HealthProfile.DateOfBirth
	if dob == nil {
		return nil
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return &age
}

// BMI is rounded to one decimal place.
func (u *User) BMI() *float64 {
	h, w := u.HealthProfile.Height, u.HealthProfile.Weight
	if h == nil || w == nil || *h <= 0 || *w <= 0 {
		return nil
	}
	m := *h / 100
	bmi := math.Round(*w/(m*m)*10) / 10
	return &bmi
}

func (u *User) HasFamilyMember(id primitive.ObjectID) bool {
	for _, m := range u.FamilyMembers {
		if m == id {
			return true
		}
	}
	return false
}

// HasPremiumAccess reports whether paid features are unlocked at now.
func (u *User) HasPremiumAccess(now time.Time) bool {
	if u.SubscriptionStatus == SubscriptionFree || u.SubscriptionStatus == "" {
		return false
	}
	if u.SubscriptionExpiry != nil && now.After(*u.SubscriptionExpiry) {
		return false
	}
	return true
}

// FamilyMemberSummary is the public projection of a linked family member.
type FamilyMemberSummary struct {
	ID          primitive.ObjectID `json:"id"`
	FirstName   string             `json:"firstName"`
	LastName    string             `json:"lastName"`
	Avatar      string             `json:"avatar"`
	DateOfBirth *time.Time         `json:"dateOfBirth,omitempty"`
	Level       int                `json:"level"`
}

func (u *User) Summary() FamilyMemberSummary {
	return FamilyMemberSummary{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Avatar:      u.Avatar,
		DateOfBirth: u.HealthProfile.DateOfBirth,
		Level:       u.Gamification.Level,
	}
}

// SameDay compares calendar dates in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
