package session

import (
	"time"
	"unicode/utf8"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// MaxHistory bounds the persisted conversation history. Oldest entries are
// evicted first.
const MaxHistory = 100

// Entry is one completed user/assistant exchange.
type Entry struct {
	Query      string   `json:"query" yaml:"query"`
	Response   string   `json:"response" yaml:"response"`
	Category   string   `json:"category,omitempty" yaml:"category,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Timestamp  string   `json:"timestamp" yaml:"timestamp"`
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// appendBounded appends e and drops the oldest entries beyond max. The
// returned slice never aliases entries.
func appendBounded(entries []Entry, e Entry, max int) []Entry {
	start := 0
	if len(entries)+1 > max {
		start = len(entries) + 1 - max
	}
	out := make([]Entry, 0, len(entries)+1-start)
	out = append(out, entries[start:]...)
	return append(out, e)
}

// Preview is a shortened Entry for history listings.
type Preview struct {
	Query      string
	Response   string
	Timestamp  string
	Category   string
	Confidence *float64
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
