// Package events carries UI updates from the session manager to whatever is
// rendering the widget.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/analytics"
	"github.com/go-go-golems/chatwidget/pkg/api"
)

type Kind string

const (
	KindUserMessage    Kind = "user_message"
	KindBotMessage     Kind = "bot_message"
	KindError          Kind = "error"
	KindTyping         Kind = "typing"
	KindQuickActions   Kind = "quick_actions"
	KindSuggestions    Kind = "suggestions"
	KindStatistics     Kind = "statistics"
	KindNotification   Kind = "notification"
	KindHistoryCleared Kind = "history_cleared"
)

// Event is the single envelope for every UI update. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind         Kind               `json:"kind"`
	Time         time.Time          `json:"time"`
	RequestID    uint64             `json:"request_id,omitempty"`
	Text         string             `json:"text,omitempty"`
	Category     string             `json:"category,omitempty"`
	Confidence   *float64           `json:"confidence,omitempty"`
	Typing       bool               `json:"typing,omitempty"`
	QuickActions []api.QuickAction  `json:"quick_actions,omitempty"`
	Suggestions  []string           `json:"suggestions,omitempty"`
	Metrics      *analytics.Metrics `json:"metrics,omitempty"`
	Fallback     bool               `json:"fallback,omitempty"`
}

type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Recorder keeps published events in memory, in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = &Recorder{}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Fanout publishes to every sink in order and returns the first error.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) error {
		var firstErr error
		for _, s := range sinks {
			if err := s.Publish(ctx, ev); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}
