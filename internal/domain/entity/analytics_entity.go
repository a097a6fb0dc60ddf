package entity

type SeverityDistribution struct {
	Mild     int `json:"mild"`     // 1-3
	Moderate int `json:"moderate"` // 4-6
	Severe   int `json:"severe"`   // 7-10
}

type RiskAssessment struct {
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	Urgent   int `json:"urgent"`
}

type TrendPoint struct {
	Date            string  `json:"date"` // YYYY-MM-DD, UTC
	Count           int     `json:"count"`
	AverageSeverity float64 `json:"averageSeverity"`
}

type SymptomCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SymptomAnalytics summarizes a user's logs over a period of days.
type SymptomAnalytics struct {
	TotalLogs            int                  `json:"totalLogs"`
	AverageSeverity      float64              `json:"averageSeverity"`
	CategoryBreakdown    map[string]int       `json:"categoryBreakdown"`
	SeverityDistribution SeverityDistribution `json:"severityDistribution"`
	FrequencyAnalysis    map[string]int       `json:"frequencyAnalysis"`
	TrendData            []TrendPoint         `json:"trendData"`
	MostCommonSymptoms   []SymptomCount       `json:"mostCommonSymptoms"`
	RiskAssessment       RiskAssessment       `json:"riskAssessment"`
}

type InsightTrends struct {
	Improving []string `json:"improving"`
	Worsening []string `json:"worsening"`
	Stable    []string `json:"stable"`
}

// Insights are generated statements about a user's recent history.
type Insights struct {
	Patterns        []string      `json:"patterns"`
	Recommendations []string      `json:"recommendations"`
	Alerts          []string      `json:"alerts"`
	Trends          InsightTrends `json:"trends"`
}
