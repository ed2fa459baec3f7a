package analytics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_EmptySnapshot(t *testing.T) {
	m := ApplyDefaults(Snapshot{})

	require.Equal(t, 0, m.TotalQueries)
	require.Equal(t, 1, m.UniqueUsers)
	require.Equal(t, 95.0, m.SuccessRate)
	require.Equal(t, 0, m.RecentActivity)
	require.Equal(t, 0, m.TodayActivity)
	require.Equal(t, 0.87, m.AvgConfidence)
	require.Equal(t, 87, m.ConfidencePercent)
	require.Equal(t, 95, m.Accuracy)
	require.Equal(t, LevelHigh, m.SuccessLevel)
	require.Equal(t, LevelHigh, m.ConfidenceLevel)
}

func TestApplyDefaults_SuccessRateFromConfidence(t *testing.T) {
	m := ApplyDefaults(Snapshot{AvgConfidence: Float(0.72)})
	require.InDelta(t, 72.0, m.SuccessRate, 1e-9)
	require.Equal(t, 72, m.Accuracy)
	require.Equal(t, LevelLow, m.SuccessLevel)
	require.Equal(t, LevelMedium, m.ConfidenceLevel)
}

func TestApplyDefaults_ZeroIsNotAbsent(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"unique_users":0,"success_rate":0,"avg_confidence":0}`), &s))
	m := ApplyDefaults(s)
	require.Equal(t, 0, m.UniqueUsers)
	require.Equal(t, 0.0, m.SuccessRate)
	require.Equal(t, 0.0, m.AvgConfidence)
	require.Equal(t, LevelLow, m.SuccessLevel)
	require.Equal(t, LevelLow, m.ConfidenceLevel)
}

func TestApplyDefaults_FullSnapshot(t *testing.T) {
	var s Snapshot
	payload := `{"success":true,"total_queries":40,"unique_users":7,"avg_confidence":0.912,
		"success_rate":88.4,"recent_activity":5,"today_activity":3,
		"categories":[{"name":"exams","count":12,"percentage":30.0}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	m := ApplyDefaults(s)
	require.Equal(t, 40, m.TotalQueries)
	require.Equal(t, 7, m.UniqueUsers)
	require.Equal(t, 88, m.Accuracy)
	require.Equal(t, 91, m.ConfidencePercent)
	require.Equal(t, LevelMedium, m.SuccessLevel)
	require.Equal(t, LevelHigh, m.ConfidenceLevel)
	require.Len(t, s.Categories, 1)
}

func TestFallback(t *testing.T) {
	m := ApplyDefaults(Fallback(0))
	require.Equal(t, 156, m.TotalQueries)
	require.Equal(t, 24, m.UniqueUsers)
	require.Equal(t, 92.5, m.SuccessRate)
	require.Equal(t, 93, m.Accuracy)
	require.Equal(t, 12, m.RecentActivity)
	require.Equal(t, 8, m.TodayActivity)

	require.Equal(t, 3, ApplyDefaults(Fallback(3)).TotalQueries)
}

func TestLevels(t *testing.T) {
	require.Equal(t, LevelHigh, SuccessLevel(90))
	require.Equal(t, LevelMedium, SuccessLevel(89.9))
	require.Equal(t, LevelMedium, SuccessLevel(75))
	require.Equal(t, LevelLow, SuccessLevel(74.9))
	require.Equal(t, LevelHigh, ConfidenceLevel(85))
	require.Equal(t, LevelMedium, ConfidenceLevel(70))
	require.Equal(t, LevelLow, ConfidenceLevel(69))
}
