package application

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

const (
	patternWindow    = 30 * 24 * time.Hour
	trendThreshold   = 1.0
	highStress       = 7
	poorSleepHours   = 6.0
	minTriggerCounts = 2
)

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func meanSeverity(logs []*entity.SymptomLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	sum := 0
	for _, l := range logs {
		sum += l.Severity
	}
	return float64(sum) / float64(len(logs))
}

func compareTrend(recentAvg, olderAvg float64) entity.SeverityTrend {
	switch {
	case recentAvg > olderAvg+trendThreshold:
		return entity.TrendWorsening
	case recentAvg < olderAvg-trendThreshold:
		return entity.TrendImproving
	default:
		return entity.TrendStable
	}
}

func window(logs []*entity.SymptomLog, from, to int) []*entity.SymptomLog {
	if from > len(logs) {
		from = len(logs)
	}
	if to > len(logs) {
		to = len(logs)
	}
	return logs[from:to]
}

// AnalyzeSymptom annotates s using the user's earlier logs (newest first).
func AnalyzeSymptom(s *entity.SymptomLog, history []*entity.SymptomLog, now time.Time) entity.SymptomAnalysis {
	name := strings.ToLower(strings.TrimSpace(s.SymptomName))
	similar := make([]*entity.SymptomLog, 0, len(history))
	recent := make([]*entity.SymptomLog, 0, len(history))
	for _, h := range history {
		if strings.ToLower(strings.TrimSpace(h.SymptomName)) != name {
			continue
		}
		similar = append(similar, h)
		if now.Sub(h.LoggedAt) <= patternWindow {
			recent = append(recent, h)
		}
	}

	pattern := &entity.PatternRecognition{
		Frequency:       entity.PatternRare,
		Triggers:        []string{},
		Correlations:    []string{},
		Recommendations: []string{},
	}
	switch {
	case len(recent) >= 10:
		pattern.Frequency = entity.PatternFrequent
	case len(recent) >= 5:
		pattern.Frequency = entity.PatternOccasional
	}

	trend := entity.TrendUnknown
	if len(similar) >= 3 {
		recentAvg := meanSeverity(window(similar, 0, 3))
		olderAvg := recentAvg
		if older := window(similar, 3, 6); len(older) > 0 {
			olderAvg = meanSeverity(older)
		}
		trend = compareTrend(recentAvg, olderAvg)
	}

	risk := entity.RiskLow
	switch {
	case s.Severity >= 8:
		risk = entity.RiskHigh
	case s.Severity >= 6:
		risk = entity.RiskModerate
	}
	if trend == entity.TrendWorsening {
		if risk == entity.RiskLow {
			risk = entity.RiskModerate
		}
		if s.Severity >= entity.MaxScore {
			risk = entity.RiskUrgent
		}
	}

	suggestions := []string{}
	if pattern.Frequency == entity.PatternFrequent {
		suggestions = append(suggestions,
			"Consider tracking environmental factors that might be triggering this symptom",
			"Schedule a consultation with your healthcare provider to discuss recurring symptoms")
	}
	if trend == entity.TrendWorsening {
		suggestions = append(suggestions, "Your symptoms appear to be getting worse. Consider seeking medical advice")
	}
	if s.Category == "mental" && s.Severity >= 7 {
		suggestions = append(suggestions, "Consider mindfulness exercises or speaking with a mental health professional")
	}

	detectTriggers(pattern, append([]*entity.SymptomLog{s}, recent...))

	at := now
	return entity.SymptomAnalysis{
		AISuggestions:      suggestions,
		PatternRecognition: pattern,
		SeverityTrend:      trend,
		RiskLevel:          risk,
		LastAnalyzed:       &at,
	}
}

type trigger struct {
	key            string
	correlation    string
	recommendation string
}

func contextTriggers(l *entity.SymptomLog) []trigger {
	var out []trigger
	ctx := l.Context
	if ctx.Mood != nil && ctx.Mood.Stress >= highStress {
		out = append(out, trigger{
			key:            "high stress",
			correlation:    "Occurs when stress levels are high",
			recommendation: "Try stress-reduction techniques such as breathing exercises or short walks",
		})
	}
	if ctx.Lifestyle != nil && ctx.Lifestyle.SleepHours != nil && *ctx.Lifestyle.SleepHours < poorSleepHours {
		out = append(out, trigger{
			key:            "poor sleep",
			correlation:    "Occurs after fewer than 6 hours of sleep",
			recommendation: "Aim for a consistent sleep schedule of 7-9 hours",
		})
	}
	if ctx.Weather != nil && strings.TrimSpace(ctx.Weather.Conditions) != "" {
		c := strings.ToLower(strings.TrimSpace(ctx.Weather.Conditions))
		out = append(out, trigger{
			key:            "weather: " + c,
			correlation:    fmt.Sprintf("Occurs during %s weather", c),
			recommendation: fmt.Sprintf("Plan ahead on %s days and note how you feel", c),
		})
	}
	if ctx.Activity != nil && ctx.Activity.Type != "" {
		a := strings.ToLower(ctx.Activity.Type)
		out = append(out, trigger{
			key:            "activity: " + a,
			correlation:    fmt.Sprintf("Occurs while %s", a),
			recommendation: fmt.Sprintf("Watch how %s affects this symptom", a),
		})
	}
	return out
}

// detectTriggers keeps context factors that show up in at least two of logs, in first-seen order.
func detectTriggers(p *entity.PatternRecognition, logs []*entity.SymptomLog) {
	counts := map[string]int{}
	var order []trigger
	for _, l := range logs {
		seen := map[string]bool{}
		for _, t := range contextTriggers(l) {
			if seen[t.key] {
				continue
			}
			seen[t.key] = true
			if counts[t.key] == 0 {
				order = append(order, t)
			}
			counts[t.key]++
		}
	}
	for _, t := range order {
		if counts[t.key] < minTriggerCounts {
			continue
		}
		p.Triggers = append(p.Triggers, t.key)
		p.Correlations = append(p.Correlations, t.correlation)
		p.Recommendations = append(p.Recommendations, t.recommendation)
	}
}

// BuildAnalytics aggregates logs from one period.
func BuildAnalytics(logs []*entity.SymptomLog) *entity.SymptomAnalytics {
	a := &entity.SymptomAnalytics{
		TotalLogs:          len(logs),
		CategoryBreakdown:  map[string]int{},
		FrequencyAnalysis:  map[string]int{},
		TrendData:          []entity.TrendPoint{},
		MostCommonSymptoms: []entity.SymptomCount{},
	}
	if len(logs) == 0 {
		return a
	}
	a.AverageSeverity = round1(meanSeverity(logs))

	type day struct{ count, severity int }
	days := map[string]*day{}
	names := map[string]int{}

	for _, l := range logs {
		a.CategoryBreakdown[l.Category]++

		switch {
		case l.Severity <= 3:
			a.SeverityDistribution.Mild++
		case l.Severity <= 6:
			a.SeverityDistribution.Moderate++
		default:
			a.SeverityDistribution.Severe++
		}

		if l.Frequency != "" {
			a.FrequencyAnalysis[l.Frequency]++
		}

		switch l.Analysis.RiskLevel {
		case entity.RiskModerate:
			a.RiskAssessment.Moderate++
		case entity.RiskHigh:
			a.RiskAssessment.High++
		case entity.RiskUrgent:
			a.RiskAssessment.Urgent++
		default:
			a.RiskAssessment.Low++
		}

		key := l.LoggedAt.UTC().Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
		}
		d.count++
		d.severity += l.Severity

		names[l.SymptomName]++
	}

	for date, d := range days {
		a.TrendData = append(a.TrendData, entity.TrendPoint{
			Date:            date,
			Count:           d.count,
			AverageSeverity: round1(float64(d.severity) / float64(d.count)),
		})
	}
	sort.Slice(a.TrendData, func(i, j int) bool { return a.TrendData[i].Date < a.TrendData[j].Date })

	for name, n := range names {
		a.MostCommonSymptoms = append(a.MostCommonSymptoms, entity.SymptomCount{Name: name, Count: n})
	}
	sort.Slice(a.MostCommonSymptoms, func(i, j int) bool {
		x, y := a.MostCommonSymptoms[i], a.MostCommonSymptoms[j]
		if x.Count != y.Count {
			return x.Count > y.Count
		}
		return x.Name < y.Name
	})
	if len(a.MostCommonSymptoms) > 10 {
		a.MostCommonSymptoms = a.MostCommonSymptoms[:10]
	}
	return a
}

// BuildInsights compares halves of each symptom's recent history (newest first).
func BuildInsights(logs []*entity.SymptomLog) *entity.Insights {
	in := &entity.Insights{
		Patterns:        []string{},
		Recommendations: []string{},
		Alerts:          []string{},
		Trends:          entity.InsightTrends{Improving: []string{}, Worsening: []string{}, Stable: []string{}},
	}

	groups := map[string][]*entity.SymptomLog{}
	for _, l := range logs {
		groups[l.SymptomName] = append(groups[l.SymptomName], l)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := groups[name]
		if len(group) < 3 {
			continue
		}
		half := len(group) / 2
		switch compareTrend(meanSeverity(group[:half]), meanSeverity(group[half:])) {
		case entity.TrendWorsening:
			in.Trends.Worsening = append(in.Trends.Worsening, name)
			in.Alerts = append(in.Alerts, fmt.Sprintf("%s severity is increasing - consider medical consultation", name))
		case entity.TrendImproving:
			in.Trends.Improving = append(in.Trends.Improving, name)
		default:
			in.Trends.Stable = append(in.Trends.Stable, name)
		}
		if len(group) >= 5 {
			in.Patterns = append(in.Patterns, fmt.Sprintf("%s occurs frequently - logged %d times recently", name, len(group)))
		}
	}

	high := 0
	for _, l := range logs {
		if l.Severity >= 7 {
			high++
		}
	}
	if float64(high) > float64(len(logs))*0.3 {
		in.Recommendations = append(in.Recommendations, "Consider consulting with a healthcare provider about your high-severity symptoms")
	}
	if len(logs) > 20 {
		in.Recommendations = append(in.Recommendations, "Great job consistently tracking your symptoms! This data will help identify patterns")
	}
	in.Recommendations = append(in.Recommendations, "Try to log contextual information like mood, weather, and activities for better insights")
	return in
}
