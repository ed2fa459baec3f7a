// Package analytics turns backend usage statistics into the counters shown in
// the widget sidebar.
package analytics

// Snapshot is the /api/statistics payload. Every field may be absent; absent
// numbers decode to nil.
type Snapshot struct {
	Success        *bool           `json:"success,omitempty"`
	TotalQueries   *int            `json:"total_queries,omitempty"`
	UniqueUsers    *int            `json:"unique_users,omitempty"`
	AvgConfidence  *float64        `json:"avg_confidence,omitempty"`
	SuccessRate    *float64        `json:"success_rate,omitempty"`
	RecentActivity *int            `json:"recent_activity,omitempty"`
	TodayActivity  *int            `json:"today_activity,omitempty"`
	Categories     []CategoryCount `json:"categories,omitempty"`
	CommonQueries  []QueryCount    `json:"common_queries,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
	Note           string          `json:"note,omitempty"`
}

type CategoryCount struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type QueryCount struct {
	Query     string `json:"query"`
	Frequency int    `json:"frequency"`
}

// Fallback is the offline snapshot used when the statistics endpoint fails.
// historyLen is the local conversation count; zero falls back to a sample total.
func Fallback(historyLen int) Snapshot {
	total := historyLen
	if total == 0 {
		total = 156
	}
	return Snapshot{
		TotalQueries:   Int(total),
		UniqueUsers:    Int(24),
		AvgConfidence:  Float(0.87),
		SuccessRate:    Float(92.5),
		RecentActivity: Int(12),
		TodayActivity:  Int(8),
		Note:           "Using sample data",
	}
}

func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }
