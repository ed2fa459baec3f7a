package analytics

import "math"

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Metrics is a Snapshot with every default resolved.
type Metrics struct {
	TotalQueries      int     `json:"total_queries"`
	UniqueUsers       int     `json:"unique_users"`
	SuccessRate       float64 `json:"success_rate"`
	RecentActivity    int     `json:"recent_activity"`
	TodayActivity     int     `json:"today_activity"`
	AvgConfidence     float64 `json:"avg_confidence"`
	Accuracy          int     `json:"accuracy"`
	ConfidencePercent int     `json:"confidence_percent"`
	SuccessLevel      Level   `json:"success_level"`
	ConfidenceLevel   Level   `json:"confidence_level"`
}

const (
	defaultUniqueUsers   = 1
	defaultSuccessRate   = 95.0
	defaultAvgConfidence = 0.87
)

// ApplyDefaults fills absent snapshot fields. success_rate falls back to
// avg_confidence*100 before the constant default.
func ApplyDefaults(s Snapshot) Metrics {
	m := Metrics{
		TotalQueries:   intOr(s.TotalQueries, 0),
		UniqueUsers:    intOr(s.UniqueUsers, defaultUniqueUsers),
		RecentActivity: intOr(s.RecentActivity, 0),
		TodayActivity:  intOr(s.TodayActivity, 0),
		AvgConfidence:  floatOr(s.AvgConfidence, defaultAvgConfidence),
	}

	switch {
	case s.SuccessRate != nil:
		m.SuccessRate = *s.SuccessRate
	case s.AvgConfidence != nil:
		m.SuccessRate = *s.AvgConfidence * 100
	default:
		m.SuccessRate = defaultSuccessRate
	}

	m.Accuracy = int(math.Round(m.SuccessRate))
	m.ConfidencePercent = int(math.Round(m.AvgConfidence * 100))
	m.SuccessLevel = SuccessLevel(m.SuccessRate)
	m.ConfidenceLevel = ConfidenceLevel(m.AvgConfidence * 100)
	return m
}

func SuccessLevel(rate float64) Level {
	switch {
	case rate >= 90:
		return LevelHigh
	case rate >= 75:
		return LevelMedium
	default:
		return LevelLow
	}
}

func ConfidenceLevel(percent float64) Level {
	switch {
	case percent >= 85:
		return LevelHigh
	case percent >= 70:
		return LevelMedium
	default:
		return LevelLow
	}
}

func intOr(v *int, d int) int {
	if v == nil {
		return d
	}
	return *v
}

func floatOr(v *float64, d float64) float64 {
	if v == nil {
		return d
	}
	return *v
}
