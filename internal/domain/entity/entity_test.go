package entity

import (
	"testing"
	"time"
)

func TestAddXPLevelProgression(t *testing.T) {
	u := NewUser("A@B.com", "hash", "Ann", "Lee", time.Now())
	if u.Gamification.Level != 1 {
		t.Fatalf("expected level 1 for new user, got %d", u.Gamification.Level)
	}

	u.AddXP(999)
	if u.Gamification.Level != 1 {
		t.Fatalf("expected level 1 at 999 xp, got %d", u.Gamification.Level)
	}
	u.AddXP(1)
	if u.Gamification.Level != 2 || u.Gamification.TotalXP != 1000 {
		t.Fatalf("expected level 2 at 1000 xp, got level=%d total=%d", u.Gamification.Level, u.Gamification.TotalXP)
	}

	u.Gamification.Level = 7
	u.AddXP(25)
	if u.Gamification.Level != 7 {
		t.Fatalf("expected level to never decrease, got %d", u.Gamification.Level)
	}
}

func TestNewUserNormalizesAndDefaults(t *testing.T) {
	u := NewUser("  Mixed@Case.COM ", "hash", " Ann ", " Lee ", time.Now())
	if u.Email != "mixed@case.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.FullName() != "Ann Lee" {
		t.Fatalf("unexpected full name %q", u.FullName())
	}
	if !u.IsActive || u.SubscriptionStatus != SubscriptionFree || u.FamilyRole != "other" {
		t.Fatalf("unexpected defaults: %+v", u)
	}
	if len(u.Preferences.Notifications.ReminderTimes) != 3 || u.Preferences.Accessibility.FontSize != "medium" {
		t.Fatalf("unexpected default preferences: %+v", u.Preferences)
	}
}

func TestAgeAndBMI(t *testing.T) {
	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	height, weight := 180.0, 81.0
	u := &User{HealthProfile: HealthProfile{DateOfBirth: &dob, Height: &height, Weight: &weight}}

	before := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)
	if got := *u.Age(before); got != 33 {
		t.Fatalf("expected 33 the day before birthday, got %d", got)
	}
	on := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	if got := *u.Age(on); got != 34 {
		t.Fatalf("expected 34 on birthday, got %d", got)
	}
	if got := *u.BMI(); got != 25 {
		t.Fatalf("expected bmi 25, got %v", got)
	}

	empty := &User{}
	if empty.Age(on) != nil || empty.BMI() != nil {
		t.Fatal("expected nil age and bmi without profile data")
	}
}

func TestTouchActivityStreaks(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	u := &User{}
	u.TouchActivity(day1)
	u.TouchActivity(day1.Add(3 * time.Hour))
	if u.Gamification.Streaks.Current != 1 {
		t.Fatalf("expected streak 1 after same-day activity, got %d", u.Gamification.Streaks.Current)
	}
	u.TouchActivity(day1.AddDate(0, 0, 1))
	if u.Gamification.Streaks.Current != 2 || u.Gamification.Streaks.Longest != 2 {
		t.Fatalf("expected streak 2, got %+v", u.Gamification.Streaks)
	}
	u.TouchActivity(day1.AddDate(0, 0, 5))
	if u.Gamification.Streaks.Current != 1 || u.Gamification.Streaks.Longest != 2 {
		t.Fatalf("expected reset streak with longest kept, got %+v", u.Gamification.Streaks)
	}
}

func TestHasPremiumAccess(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	tests := []struct {
		name string
		user User
		want bool
	}{
		{name: "free", user: User{SubscriptionStatus: SubscriptionFree}, want: false},
		{name: "premium", user: User{SubscriptionStatus: SubscriptionPremium}, want: true},
		{name: "family", user: User{SubscriptionStatus: SubscriptionFamily}, want: true},
		{name: "expired premium", user: User{SubscriptionStatus: SubscriptionPremium, SubscriptionExpiry: &past}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.HasPremiumAccess(now); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSymptomNormalizeClampsScores(t *testing.T) {
	now := time.Now()
	s := &SymptomLog{
		SymptomName: "  Headache ",
		Severity:    14,
		Impact:      Impact{DailyActivities: 0, WorkProductivity: 11, SocialInteractions: 5, SleepQuality: -2},
		Duration:    -5,
		Context:     SymptomContext{Mood: &Mood{Stress: 12, Anxiety: 0}},
		Tags:        []string{" Work ", "work", "", "STRESS"},
	}
	s.Normalize(now)

	if s.SymptomName != "Headache" || s.Category != "physical" || s.Onset != "unknown" || s.Source != "manual" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Severity != 10 || s.Duration != 0 {
		t.Fatalf("expected severity 10 and duration 0, got %d %d", s.Severity, s.Duration)
	}
	if s.Impact != (Impact{DailyActivities: 1, WorkProductivity: 10, SocialInteractions: 5, SleepQuality: 1}) {
		t.Fatalf("unexpected impact %+v", s.Impact)
	}
	if s.Context.Mood.Stress != 10 || s.Context.Mood.Anxiety != 0 {
		t.Fatalf("unexpected mood %+v", s.Context.Mood)
	}
	if len(s.Tags) != 2 || s.Tags[0] != "work" || s.Tags[1] != "stress" {
		t.Fatalf("unexpected tags %#v", s.Tags)
	}
	if !s.LoggedAt.Equal(now) || s.Attachments == nil || s.LinkedSymptoms == nil {
		t.Fatalf("expected initialized collections and loggedAt, got %+v", s)
	}
}

func TestSetResolvedTracksResolvedAt(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	s := &SymptomLog{}

	s.SetResolved(true, t1)
	if !s.Resolved || s.ResolvedAt == nil || !s.ResolvedAt.Equal(t1) {
		t.Fatalf("expected resolvedAt set on transition, got %+v", s.ResolvedAt)
	}
	s.SetResolved(true, t2)
	if !s.ResolvedAt.Equal(t1) {
		t.Fatalf("expected resolvedAt unchanged when already resolved, got %v", s.ResolvedAt)
	}
	s.SetResolved(false, t2)
	if s.Resolved || s.ResolvedAt != nil {
		t.Fatalf("expected resolvedAt cleared, got %+v", s.ResolvedAt)
	}
}

func TestOverallImpactAndAge(t *testing.T) {
	s := &SymptomLog{Impact: Impact{DailyActivities: 3, WorkProductivity: 4, SocialInteractions: 4, SleepQuality: 4}}
	if got := s.OverallImpact(); got != 4 {
		t.Fatalf("expected rounded impact 4, got %d", got)
	}
	now := time.Now()
	s.LoggedAt = now.Add(-49 * time.Hour)
	if got := s.AgeInDays(now); got != 2 {
		t.Fatalf("expected age 2 days, got %d", got)
	}
}
