package entity

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinScore = 1
	MaxScore = 10
)

// Allowed enum values, shared with request validation tags.
var (
	SymptomCategories  = []string{"physical", "mental", "emotional", "cognitive", "sleep", "digestive", "other"}
	SymptomFrequencies = []string{"first-time", "rarely", "sometimes", "often", "daily", "constant"}
	SymptomOnsets      = []string{"sudden", "gradual", "unknown"}
	SymptomSources     = []string{"manual", "voice", "automated", "import"}
)

type PatternFrequency string

const (
	PatternRare       PatternFrequency = "rare"
	PatternOccasional PatternFrequency = "occasional"
	PatternFrequent   PatternFrequency = "frequent"
	PatternChronic    PatternFrequency = "chronic"
)

type SeverityTrend string

const (
	TrendImproving SeverityTrend = "improving"
	TrendStable    SeverityTrend = "stable"
	TrendWorsening SeverityTrend = "worsening"
	TrendUnknown   SeverityTrend = "unknown"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskUrgent   RiskLevel = "urgent"
)

type Impact struct {
	DailyActivities    int `bson:"daily_activities" json:"daily_activities"`
	WorkProductivity   int `bson:"work_productivity" json:"work_productivity"`
	SocialInteractions int `bson:"social_interactions" json:"social_interactions"`
	SleepQuality       int `bson:"sleep_quality" json:"sleep_quality"`
}

type Weather struct {
	Temperature *float64 `bson:"temperature,omitempty" json:"temperature,omitempty"`
	Humidity    *float64 `bson:"humidity,omitempty" json:"humidity,omitempty"`
	Pressure    *float64 `bson:"pressure,omitempty" json:"pressure,omitempty"`
	Conditions  string   `bson:"conditions,omitempty" json:"conditions,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

type Location struct {
	Type        string       `bson:"type,omitempty" json:"type,omitempty" binding:"omitempty,locationtype"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

type Activity struct {
	Type      string `bson:"type,omitempty" json:"type,omitempty" binding:"omitempty,activitytype"`
	Intensity string `bson:"intensity,omitempty" json:"intensity,omitempty" binding:"omitempty,intensity"`
}

type Mood struct {
	Stress    int `bson:"stress,omitempty" json:"stress,omitempty"`
	Anxiety   int `bson:"anxiety,omitempty" json:"anxiety,omitempty"`
	Happiness int `bson:"happiness,omitempty" json:"happiness,omitempty"`
	Energy    int `bson:"energy,omitempty" json:"energy,omitempty"`
}

type Lifestyle struct {
	SleepHours      *float64 `bson:"sleepHours,omitempty" json:"sleepHours,omitempty" binding:"omitempty,min=0,max=24"`
	MealsToday      *int     `bson:"mealsToday,omitempty" json:"mealsToday,omitempty" binding:"omitempty,min=0,max=10"`
	WaterIntake     *int     `bson:"waterIntake,omitempty" json:"waterIntake,omitempty" binding:"omitempty,min=0"` // ml
	ExerciseMinutes *int     `bson:"exerciseMinutes,omitempty" json:"exerciseMinutes,omitempty" binding:"omitempty,min=0"`
	MedicationTaken *bool    `bson:"medicationTaken,omitempty" json:"medicationTaken,omitempty"`
}

type SymptomContext struct {
	Weather   *Weather   `bson:"weather,omitempty" json:"weather,omitempty"`
	Location  *Location  `bson:"location,omitempty" json:"location,omitempty"`
	Activity  *Activity  `bson:"activity,omitempty" json:"activity,omitempty"`
	Mood      *Mood      `bson:"mood,omitempty" json:"mood,omitempty"`
	Lifestyle *Lifestyle `bson:"lifestyle,omitempty" json:"lifestyle,omitempty"`
}

type PatternRecognition struct {
	Frequency       PatternFrequency `bson:"frequency" json:"frequency"`
	Triggers        []string         `bson:"triggers" json:"triggers"`
	Correlations    []string         `bson:"correlations" json:"correlations"`
	Recommendations []string         `bson:"recommendations" json:"recommendations"`
}

type SymptomAnalysis struct {
	AISuggestions      []string            `bson:"aiSuggestions" json:"aiSuggestions"`
	PatternRecognition *PatternRecognition `bson:"patternRecognition,omitempty" json:"patternRecognition,omitempty"`
	SeverityTrend      SeverityTrend       `bson:"severity_trend,omitempty" json:"severity_trend,omitempty"`
	RiskLevel          RiskLevel           `bson:"riskLevel,omitempty" json:"riskLevel,omitempty"`
	LastAnalyzed       *time.Time          `bson:"lastAnalyzed,omitempty" json:"lastAnalyzed,omitempty"`
}

type DeviceInfo struct {
	Platform  string `bson:"platform" json:"platform"`
	Version   string `bson:"version" json:"version"`
	UserAgent string `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
}

// SymptomLog is one reported symptom occurrence with its context and analysis.
type SymptomLog struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID   `bson:"userId" json:"userId"`
	SymptomName      string               `bson:"symptomName" json:"symptomName"`
	Category         string               `bson:"category" json:"category"`
	Severity         int                  `bson:"severity" json:"severity"`
	Impact           Impact               `bson:"impact" json:"impact"`
	Duration         int                  `bson:"duration" json:"duration"` // minutes
	Frequency        string               `bson:"frequency" json:"frequency"`
	Onset            string               `bson:"onset" json:"onset"`
	Description      string               `bson:"description" json:"description"`
	Notes            string               `bson:"notes,omitempty" json:"notes,omitempty"`
	Attachments      []string             `bson:"attachments" json:"attachments"`
	Context          SymptomContext       `bson:"context" json:"context"`
	Analysis         SymptomAnalysis      `bson:"analysis" json:"analysis"`
	Tags             []string             `bson:"tags" json:"tags"`
	LinkedSymptoms   []primitive.ObjectID `bson:"linkedSymptoms" json:"linkedSymptoms"`
	FollowUpRequired bool                 `bson:"followUpRequired" json:"followUpRequired"`
	Resolved         bool                 `bson:"resolved" json:"resolved"`
	ResolvedAt       *time.Time           `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	LoggedAt         time.Time            `bson:"loggedAt" json:"loggedAt"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
	Source           string               `bson:"source" json:"source"`
	DeviceInfo       *DeviceInfo          `bson:"deviceInfo,omitempty" json:"deviceInfo,omitempty"`
}

// LinkedSymptomSummary is what a log exposes about the logs it links to.
type LinkedSymptomSummary struct {
	ID          primitive.ObjectID `json:"id"`
	SymptomName string             `json:"symptomName"`
	Severity    int                `json:"severity"`
	Category    string             `json:"category"`
	LoggedAt    time.Time          `json:"loggedAt"`
}

func (s *SymptomLog) Summary() LinkedSymptomSummary {
	return LinkedSymptomSummary{ID: s.ID, SymptomName: s.SymptomName, Severity: s.Severity, Category: s.Category, LoggedAt: s.LoggedAt}
}

// ClampScore bounds a 1-10 score.
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func clampOptional(v int) int {
	if v == 0 {
		return 0
	}
	return ClampScore(v)
}

// Normalize applies defaults and bounds before a log is persisted.
func (s *SymptomLog) Normalize(now time.Time) {
	s.SymptomName = strings.TrimSpace(s.SymptomName)
	if s.Category == "" {
		s.Category = "physical"
	}
	if s.Onset == "" {
		s.Onset = "unknown"
	}
	if s.Source == "" {
		s.Source = "manual"
	}
	if s.Duration < 0 {
		s.Duration = 0
	}
	s.Severity = ClampScore(s.Severity)
	s.Impact.DailyActivities = ClampScore(s.Impact.DailyActivities)
	s.Impact.WorkProductivity = ClampScore(s.Impact.WorkProductivity)
	s.Impact.SocialInteractions = ClampScore(s.Impact.SocialInteractions)
	s.Impact.SleepQuality = ClampScore(s.Impact.SleepQuality)
	if m := s.Context.Mood; m != nil {
		m.Stress = clampOptional(m.Stress)
		m.Anxiety = clampOptional(m.Anxiety)
		m.Happiness = clampOptional(m.Happiness)
		m.Energy = clampOptional(m.Energy)
	}
	s.Tags = NormalizeTags(s.Tags)
	if s.Attachments == nil {
		s.Attachments = []string{}
	}
	if s.LinkedSymptoms == nil {
		s.LinkedSymptoms = []primitive.ObjectID{}
	}
	if s.Analysis.AISuggestions == nil {
		s.Analysis.AISuggestions = []string{}
	}
	if s.LoggedAt.IsZero() {
		s.LoggedAt = now
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// SetResolved keeps ResolvedAt in step with Resolved.
func (s *SymptomLog) SetResolved(resolved bool, now time.Time) {
	switch {
	case resolved && !s.Resolved:
		t := now
		s.ResolvedAt = &t
	case resolved && s.ResolvedAt == nil:
		t := now
		s.ResolvedAt = &t
	case !resolved:
		s.ResolvedAt = nil
	}
	s.Resolved = resolved
}

// OverallImpact is the rounded mean of the four impact scores.
func (s *SymptomLog) OverallImpact() int {
	i := s.Impact
	sum := i.DailyActivities + i.WorkProductivity + i.SocialInteractions + i.SleepQuality
	return int(math.Round(float64(sum) / 4))
}

func (s *SymptomLog) AgeInDays(now time.Time) int {
	return int(now.Sub(s.LoggedAt).Hours() / 24)
}

// NormalizeTags trims, lower-cases and de-duplicates tags, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
