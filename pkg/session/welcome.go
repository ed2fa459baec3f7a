package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/events"
)

const (
	queryPreviewLen    = 80
	responsePreviewLen = 100
	DefaultRecentCount = 10
)

func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func WelcomeMessage(t time.Time) string {
	return fmt.Sprintf(`🌟 **%s! I'm your AI Student Assistant** 🤖

I'm here to help you 24/7 with all your academic and campus needs.

🎓 **I can assist with:**
- **Exam schedules** and dates 📅
- **Fee payments** and deadlines 💰
- **Library resources** and timings 📚
- **Hostel facilities** and admission 🏠
- **Course registration** and syllabus 🎓
- **Transport schedules** and routes 🚌
- **Document services** and certificates 📄
- **Results** and grading system 📊

💡 **Quick Tips:**
1. Use `+"`/quick N`"+` to send a quick action and `+"`/suggest N`"+` for a suggestion
2. Type **naturally** like you're talking to a friend
3. Check `+"`/stats`"+` for the analytics dashboard
4. Switch between **light/dark** theme with `+"`/theme`"+`

🔍 **Try asking:**
- "When are the mid-term exams?"
- "How to pay fees online?"
- "What are the library timings?"
- "How to apply for hostel?"

I'm here to make your campus life easier! 🚀`, Greeting(t))
}

// Welcome publishes the greeting as a bot message. It is not recorded in
// the history.
func (m *Manager) Welcome(ctx context.Context) string {
	text := WelcomeMessage(m.now())
	m.publish(ctx, events.Event{Kind: events.KindBotMessage, Text: text})
	return text
}

// RecentHistory returns up to n entries, newest first, with truncated text.
// n <= 0 selects DefaultRecentCount.
func (m *Manager) RecentHistory(n int) []Preview {
	if n <= 0 {
		n = DefaultRecentCount
	}
	entries := m.state.Entries()
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]Preview, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		out = append(out, Preview{
			Query:      truncate(e.Query, queryPreviewLen),
			Response:   truncate(e.Response, responsePreviewLen),
			Timestamp:  e.Timestamp,
			Category:   e.Category,
			Confidence: e.Confidence,
		})
	}
	return out
}
