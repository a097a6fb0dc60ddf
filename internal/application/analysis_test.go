package application

import (
	"reflect"
	"testing"
	"time"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

var analysisNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// history builds newest-first logs of one symptom, one day apart.
func history(name string, severities ...int) []*entity.SymptomLog {
	out := make([]*entity.SymptomLog, 0, len(severities))
	for i, sev := range severities {
		out = append(out, &entity.SymptomLog{
			SymptomName: name,
			Severity:    sev,
			LoggedAt:    analysisNow.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
	return out
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAnalyzeSymptomFrequency(t *testing.T) {
	cases := []struct {
		name  string
		count int
		want  entity.PatternFrequency
	}{
		{"none", 0, entity.PatternRare},
		{"four", 4, entity.PatternRare},
		{"five", 5, entity.PatternOccasional},
		{"nine", 9, entity.PatternOccasional},
		{"ten", 10, entity.PatternFrequent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &entity.SymptomLog{SymptomName: "Headache", Severity: 4}
			got := AnalyzeSymptom(s, history("headache", repeat(4, tc.count)...), analysisNow)
			if got.PatternRecognition.Frequency != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.PatternRecognition.Frequency)
			}
		})
	}
}

func TestAnalyzeSymptomIgnoresOldAndOtherLogs(t *testing.T) {
	logs := history("headache", repeat(4, 6)...)
	for _, l := range logs {
		l.LoggedAt = analysisNow.Add(-40 * 24 * time.Hour)
	}
	logs = append(logs, history("nausea", repeat(4, 10)...)...)
	got := AnalyzeSymptom(&entity.SymptomLog{SymptomName: "headache", Severity: 3}, logs, analysisNow)
	if got.PatternRecognition.Frequency != entity.PatternRare {
		t.Fatalf("expected rare, got %s", got.PatternRecognition.Frequency)
	}
	// old logs still count for the trend
	if got.SeverityTrend != entity.TrendStable {
		t.Fatalf("expected stable trend, got %s", got.SeverityTrend)
	}
}

func TestAnalyzeSymptomTrendAndRisk(t *testing.T) {
	cases := []struct {
		name     string
		severity int
		history  []int
		trend    entity.SeverityTrend
		risk     entity.RiskLevel
	}{
		{"unknown with little history", 5, []int{5, 5}, entity.TrendUnknown, entity.RiskLow},
		{"stable", 6, []int{5, 5, 5, 5, 5, 5}, entity.TrendStable, entity.RiskModerate},
		{"worsening lifts low to moderate", 3, []int{6, 6, 6, 2, 2, 2}, entity.TrendWorsening, entity.RiskModerate},
		{"worsening keeps high", 8, []int{6, 6, 6, 2, 2, 2}, entity.TrendWorsening, entity.RiskHigh},
		{"worsening at max is urgent", 10, []int{8, 8, 8, 3, 3, 3}, entity.TrendWorsening, entity.RiskUrgent},
		{"improving", 2, []int{2, 2, 2, 8, 8, 8}, entity.TrendImproving, entity.RiskLow},
		{"three logs compare with themselves", 9, []int{9, 9, 9}, entity.TrendStable, entity.RiskHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &entity.SymptomLog{SymptomName: "migraine", Severity: tc.severity}
			got := AnalyzeSymptom(s, history("migraine", tc.history...), analysisNow)
			if got.SeverityTrend != tc.trend {
				t.Fatalf("trend: expected %s, got %s", tc.trend, got.SeverityTrend)
			}
			if got.RiskLevel != tc.risk {
				t.Fatalf("risk: expected %s, got %s", tc.risk, got.RiskLevel)
			}
			if got.LastAnalyzed == nil || !got.LastAnalyzed.Equal(analysisNow) {
				t.Fatalf("unexpected lastAnalyzed %v", got.LastAnalyzed)
			}
		})
	}
}

func TestAnalyzeSymptomSuggestions(t *testing.T) {
	s := &entity.SymptomLog{SymptomName: "anxiety", Category: "mental", Severity: 8}
	got := AnalyzeSymptom(s, history("anxiety", append([]int{9, 9, 9}, repeat(2, 7)...)...), analysisNow)
	want := []string{
		"Consider tracking environmental factors that might be triggering this symptom",
		"Schedule a consultation with your healthcare provider to discuss recurring symptoms",
		"Your symptoms appear to be getting worse. Consider seeking medical advice",
		"Consider mindfulness exercises or speaking with a mental health professional",
	}
	if !reflect.DeepEqual(got.AISuggestions, want) {
		t.Fatalf("unexpected suggestions:\n%v", got.AISuggestions)
	}

	quiet := AnalyzeSymptom(&entity.SymptomLog{SymptomName: "cough", Severity: 2}, nil, analysisNow)
	if quiet.AISuggestions == nil || len(quiet.AISuggestions) != 0 {
		t.Fatalf("expected empty suggestions, got %#v", quiet.AISuggestions)
	}
}

func TestAnalyzeSymptomTriggers(t *testing.T) {
	short := 5.0
	stressed := entity.SymptomContext{
		Mood:      &entity.Mood{Stress: 8},
		Lifestyle: &entity.Lifestyle{SleepHours: &short},
		Weather:   &entity.Weather{Conditions: " Rainy "},
	}
	past := history("headache", 4, 4)
	past[0].Context = entity.SymptomContext{Mood: &entity.Mood{Stress: 9}, Weather: &entity.Weather{Conditions: "rainy"}}
	past[1].Context = entity.SymptomContext{Activity: &entity.Activity{Type: "running"}}

	s := &entity.SymptomLog{SymptomName: "headache", Severity: 5, Context: stressed}
	got := AnalyzeSymptom(s, past, analysisNow).PatternRecognition

	if want := []string{"high stress", "weather: rainy"}; !reflect.DeepEqual(got.Triggers, want) {
		t.Fatalf("expected triggers %v, got %v", want, got.Triggers)
	}
	if len(got.Correlations) != 2 || len(got.Recommendations) != 2 {
		t.Fatalf("expected one correlation and recommendation per trigger, got %v / %v", got.Correlations, got.Recommendations)
	}
}

func TestBuildAnalytics(t *testing.T) {
	day1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	logs := []*entity.SymptomLog{
		{SymptomName: "headache", Category: "physical", Severity: 2, Frequency: "often", LoggedAt: day1, Analysis: entity.SymptomAnalysis{RiskLevel: entity.RiskLow}},
		{SymptomName: "headache", Category: "physical", Severity: 5, LoggedAt: day1.Add(time.Hour), Analysis: entity.SymptomAnalysis{RiskLevel: entity.RiskModerate}},
		{SymptomName: "anxiety", Category: "mental", Severity: 8, Frequency: "often", LoggedAt: day2, Analysis: entity.SymptomAnalysis{RiskLevel: entity.RiskUrgent}},
		{SymptomName: "back pain", Category: "physical", Severity: 7, LoggedAt: day2},
	}
	a := BuildAnalytics(logs)

	if a.TotalLogs != 4 || a.AverageSeverity != 5.5 {
		t.Fatalf("unexpected totals %d %v", a.TotalLogs, a.AverageSeverity)
	}
	if a.CategoryBreakdown["physical"] != 3 || a.CategoryBreakdown["mental"] != 1 {
		t.Fatalf("unexpected categories %v", a.CategoryBreakdown)
	}
	if a.SeverityDistribution != (entity.SeverityDistribution{Mild: 1, Moderate: 1, Severe: 2}) {
		t.Fatalf("unexpected distribution %+v", a.SeverityDistribution)
	}
	if a.FrequencyAnalysis["often"] != 2 || len(a.FrequencyAnalysis) != 1 {
		t.Fatalf("unexpected frequency analysis %v", a.FrequencyAnalysis)
	}
	if a.RiskAssessment != (entity.RiskAssessment{Low: 2, Moderate: 1, Urgent: 1}) {
		t.Fatalf("unexpected risk assessment %+v", a.RiskAssessment)
	}
	wantTrend := []entity.TrendPoint{
		{Date: "2024-05-01", Count: 2, AverageSeverity: 3.5},
		{Date: "2024-05-02", Count: 2, AverageSeverity: 7.5},
	}
	if !reflect.DeepEqual(a.TrendData, wantTrend) {
		t.Fatalf("unexpected trend %+v", a.TrendData)
	}
	wantCommon := []entity.SymptomCount{{Name: "headache", Count: 2}, {Name: "anxiety", Count: 1}, {Name: "back pain", Count: 1}}
	if !reflect.DeepEqual(a.MostCommonSymptoms, wantCommon) {
		t.Fatalf("unexpected most common %+v", a.MostCommonSymptoms)
	}
}

func TestBuildAnalyticsEmpty(t *testing.T) {
	a := BuildAnalytics(nil)
	if a.TotalLogs != 0 || a.AverageSeverity != 0 {
		t.Fatalf("unexpected %+v", a)
	}
	if a.TrendData == nil || a.MostCommonSymptoms == nil || a.CategoryBreakdown == nil {
		t.Fatal("collections must be empty, not nil")
	}
}

func TestBuildInsights(t *testing.T) {
	var logs []*entity.SymptomLog
	logs = append(logs, history("migraine", 9, 9, 9, 2, 2, 2)...)
	logs = append(logs, history("cough", 2, 2, 7, 7)...)
	logs = append(logs, history("fatigue", 4, 4, 4)...)
	logs = append(logs, history("rash", 5)...)

	in := BuildInsights(logs)

	if !reflect.DeepEqual(in.Trends.Worsening, []string{"migraine"}) {
		t.Fatalf("unexpected worsening %v", in.Trends.Worsening)
	}
	if !reflect.DeepEqual(in.Trends.Improving, []string{"cough"}) {
		t.Fatalf("unexpected improving %v", in.Trends.Improving)
	}
	if !reflect.DeepEqual(in.Trends.Stable, []string{"fatigue"}) {
		t.Fatalf("unexpected stable %v", in.Trends.Stable)
	}
	if want := []string{"migraine severity is increasing - consider medical consultation"}; !reflect.DeepEqual(in.Alerts, want) {
		t.Fatalf("unexpected alerts %v", in.Alerts)
	}
	if want := []string{"migraine occurs frequently - logged 6 times recently"}; !reflect.DeepEqual(in.Patterns, want) {
		t.Fatalf("unexpected patterns %v", in.Patterns)
	}
	// 5 of 14 logs are severe, above the 30% threshold
	want := []string{
		"Consider consulting with a healthcare provider about your high-severity symptoms",
		"Try to log contextual information like mood, weather, and activities for better insights",
	}
	if !reflect.DeepEqual(in.Recommendations, want) {
		t.Fatalf("unexpected recommendations %v", in.Recommendations)
	}
}
