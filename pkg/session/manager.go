// Package session is the conversation session manager: it owns the widget
// state, drives the send/receive flow against the backend and publishes UI
// events for every change.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatwidget/pkg/analytics"
	"github.com/go-go-golems/chatwidget/pkg/api"
	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/periodic"
)

const (
	DefaultRenderDelay     = 500 * time.Millisecond
	DefaultStatsInterval   = 30 * time.Second
	DefaultCategory        = "academics"
	ConnectionErrorText    = "⚠️ **Connection Error:** Sorry, I encountered an error. Please check your connection and try again."
	StatsUpdatedText       = "📊 Analytics updated successfully"
	StatsOfflineText       = "⚠️ Using offline analytics data"
	HistoryClearedText     = "🗑️ Chat history cleared"
	clearConfirmationTitle = "Are you sure you want to clear all chat history?"
)

var ErrEmptyMessage = errors.New("message is empty")

// Backend is the subset of the API client the manager needs.
type Backend interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	QuickActions(ctx context.Context) ([]api.QuickAction, error)
	Suggestions(ctx context.Context, category string) ([]string, error)
	Statistics(ctx context.Context) (*analytics.Snapshot, error)
}

var _ Backend = (*api.Client)(nil)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Exchange is the outcome of a successful Send.
type Exchange struct {
	RequestID uint64
	Entry     Entry
	// Latest is false when a newer send was issued before this one completed.
	Latest bool
}

// Statistics is the outcome of a statistics refresh. Metrics is always
// populated; Err is the fetch error when the offline snapshot was used.
type Statistics struct {
	Snapshot analytics.Snapshot
	Metrics  analytics.Metrics
	Fallback bool
	Err      error
}

type Manager struct {
	state   *State
	backend Backend
	sink    events.Sink
	logger  zerolog.Logger

	renderDelay     time.Duration
	statsInterval   time.Duration
	defaultCategory string
	now             func() time.Time

	seq      atomic.Uint64
	typingMu sync.Mutex
	pending  int

	sidebarMu    sync.RWMutex
	quickActions []api.QuickAction
	suggestions  []string
	metrics      *analytics.Metrics
}

type Option func(*Manager)

func WithRenderDelay(d time.Duration) Option {
	return func(m *Manager) { m.renderDelay = d }
}

func WithStatsInterval(d time.Duration) Option {
	return func(m *Manager) { m.statsInterval = d }
}

func WithDefaultCategory(c string) Option {
	return func(m *Manager) {
		if c != "" {
			m.defaultCategory = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(state *State, backend Backend, sink events.Sink, opts ...Option) *Manager {
	if sink == nil {
		sink = events.Discard
	}
	m := &Manager{
		state:           state,
		backend:         backend,
		sink:            sink,
		logger:          log.Logger,
		renderDelay:     DefaultRenderDelay,
		statsInterval:   DefaultStatsInterval,
		defaultCategory: DefaultCategory,
		now:             time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With().Str("session_id", state.SessionID()).Logger()
	return m
}

func (m *Manager) State() *State { return m.state }

// Send trims text, posts it to the chat endpoint and records the exchange.
// Whitespace-only input returns ErrEmptyMessage without publishing anything.
// On failure a single connection error event is published and no history
// entry is written.
func (m *Manager) Send(ctx context.Context, text string) (*Exchange, error) {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return nil, ErrEmptyMessage
	}

	id := m.seq.Add(1)
	logger := m.logger.With().Uint64("request_id", id).Logger()

	m.publish(ctx, events.Event{Kind: events.KindUserMessage, RequestID: id, Text: msg})
	m.setTyping(ctx, id, +1)

	resp, err := m.backend.Chat(ctx, api.ChatRequest{Message: msg, SessionID: m.state.SessionID()})
	m.setTyping(ctx, id, -1)
	if err != nil {
		logger.Warn().Err(err).Msg("chat request failed")
		m.publish(ctx, events.Event{Kind: events.KindError, RequestID: id, Text: ConnectionErrorText})
		return nil, errors.Wrap(err, "send message")
	}

	// The exchange is applied even if the caller goes away mid-flight.
	applyCtx := context.WithoutCancel(ctx)
	m.wait(ctx, m.renderDelay)

	entry := Entry{
		Query:      msg,
		Response:   resp.Response,
		Category:   resp.Category,
		Confidence: resp.Confidence,
		Timestamp:  FormatTimestamp(m.now()),
	}
	m.publish(applyCtx, events.Event{
		Kind:       events.KindBotMessage,
		RequestID:  id,
		Text:       resp.Response,
		Category:   resp.Category,
		Confidence: resp.Confidence,
	})

	if err := m.state.Append(applyCtx, entry); err != nil {
		logger.Error().Err(err).Msg("could not persist conversation history")
	}
	logger.Debug().Str("category", resp.Category).Int("history_len", m.state.Len()).Msg("exchange recorded")

	m.RefreshStatistics(applyCtx, false)

	latest := id == m.seq.Load()
	if latest {
		category := resp.Category
		if category == "" {
			category = m.defaultCategory
		}
		m.RefreshSuggestions(applyCtx, category)
	}

	return &Exchange{RequestID: id, Entry: entry, Latest: latest}, nil
}

// RefreshQuickActions fetches quick actions, publishing the built-in list on
// any failure. The returned Result carries the fetch outcome.
func (m *Manager) RefreshQuickActions(ctx context.Context) api.Result[[]api.QuickAction] {
	actions, err := m.backend.QuickActions(ctx)
	res := api.Result[[]api.QuickAction]{Value: actions, Err: err}
	value, fallback := res.Or(api.FallbackQuickActions())
	if fallback {
		m.logger.Debug().Err(err).Msg("using built-in quick actions")
	}

	m.sidebarMu.Lock()
	m.quickActions = value
	m.sidebarMu.Unlock()

	m.publish(ctx, events.Event{Kind: events.KindQuickActions, QuickActions: value, Fallback: fallback})
	return res
}

// RefreshSuggestions fetches suggestions for category, publishing the
// built-in list on any failure.
func (m *Manager) RefreshSuggestions(ctx context.Context, category string) api.Result[[]string] {
	if category == "" {
		category = m.defaultCategory
	}
	suggestions, err := m.backend.Suggestions(ctx, category)
	res := api.Result[[]string]{Value: suggestions, Err: err}
	value, fallback := res.Or(api.FallbackSuggestions())
	if fallback {
		m.logger.Debug().Err(err).Str("category", category).Msg("using built-in suggestions")
	}

	m.sidebarMu.Lock()
	m.suggestions = value
	m.sidebarMu.Unlock()

	m.publish(ctx, events.Event{Kind: events.KindSuggestions, Category: category, Suggestions: value, Fallback: fallback})
	return res
}

// RefreshStatistics fetches the analytics snapshot, substituting the offline
// snapshot on failure, and publishes the resolved metrics. When notify is set
// a notification reports which source was used.
func (m *Manager) RefreshStatistics(ctx context.Context, notify bool) Statistics {
	var st Statistics
	snap, err := m.backend.Statistics(ctx)
	if err != nil {
		st.Err = err
		st.Fallback = true
		st.Snapshot = analytics.Fallback(m.state.Len())
		m.logger.Debug().Err(err).Msg("using offline statistics")
	} else {
		st.Snapshot = *snap
	}
	st.Metrics = analytics.ApplyDefaults(st.Snapshot)

	m.sidebarMu.Lock()
	metrics := st.Metrics
	m.metrics = &metrics
	m.sidebarMu.Unlock()

	m.publish(ctx, events.Event{Kind: events.KindStatistics, Metrics: &metrics, Fallback: st.Fallback})
	if notify {
		text := StatsUpdatedText
		if st.Fallback {
			text = StatsOfflineText
		}
		m.Notify(ctx, text)
	}
	return st
}

// Load runs the startup refreshes in parallel.
func (m *Manager) Load(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		m.RefreshQuickActions(ctx)
		return nil
	})
	g.Go(func() error {
		m.RefreshSuggestions(ctx, m.defaultCategory)
		return nil
	})
	g.Go(func() error {
		m.RefreshStatistics(ctx, true)
		return nil
	})
	_ = g.Wait()
}

// Run performs the startup load and then polls statistics until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.Load(ctx)
	return periodic.Run(ctx, m.statsInterval, func(ctx context.Context) error {
		return m.RefreshStatistics(ctx, false).Err
	}, func(err error) {
		m.logger.Debug().Err(err).Msg("statistics poll fell back to offline data")
	})
}

// ClearHistory empties the history after confirmation. It reports whether
// the history was cleared; an empty history is left alone without asking.
func (m *Manager) ClearHistory(ctx context.Context, c Confirmer) (bool, error) {
	if m.state.Len() == 0 {
		return false, nil
	}
	ok, err := c.Confirm(ctx, clearConfirmationTitle)
	if err != nil {
		return false, errors.Wrap(err, "confirm clear history")
	}
	if !ok {
		return false, nil
	}
	if err := m.state.Clear(ctx); err != nil {
		return false, err
	}
	m.logger.Info().Msg("conversation history cleared")
	m.publish(ctx, events.Event{Kind: events.KindHistoryCleared})
	m.Notify(ctx, HistoryClearedText)
	return true, nil
}

// SetTheme persists t and announces the switch.
func (m *Manager) SetTheme(ctx context.Context, t Theme) error {
	if err := m.state.SetTheme(ctx, t); err != nil {
		return err
	}
	m.Notify(ctx, "Switched to "+string(t)+" theme")
	return nil
}

func (m *Manager) ToggleTheme(ctx context.Context) (Theme, error) {
	next := m.state.Theme().Toggle()
	return next, m.SetTheme(ctx, next)
}

func (m *Manager) Notify(ctx context.Context, text string) {
	m.publish(ctx, events.Event{Kind: events.KindNotification, Text: text})
}

// QuickActions returns the last published quick actions.
func (m *Manager) QuickActions() []api.QuickAction {
	m.sidebarMu.RLock()
	defer m.sidebarMu.RUnlock()
	return append([]api.QuickAction(nil), m.quickActions...)
}

// Suggestions returns the last published suggestions.
func (m *Manager) Suggestions() []string {
	m.sidebarMu.RLock()
	defer m.sidebarMu.RUnlock()
	return append([]string(nil), m.suggestions...)
}

// Metrics returns the last published metrics, or nil before the first
// statistics refresh.
func (m *Manager) Metrics() *analytics.Metrics {
	m.sidebarMu.RLock()
	defer m.sidebarMu.RUnlock()
	if m.metrics == nil {
		return nil
	}
	cp := *m.metrics
	return &cp
}

// setTyping publishes the indicator only on transitions between zero and
// non-zero sends in flight.
func (m *Manager) setTyping(ctx context.Context, id uint64, delta int) {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()
	before := m.pending
	m.pending += delta
	switch {
	case before == 0 && m.pending > 0:
		m.publish(ctx, events.Event{Kind: events.KindTyping, RequestID: id, Typing: true})
	case before > 0 && m.pending == 0:
		m.publish(context.WithoutCancel(ctx), events.Event{Kind: events.KindTyping, RequestID: id, Typing: false})
	}
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (m *Manager) publish(ctx context.Context, ev events.Event) {
	if ev.Time.IsZero() {
		ev.Time = m.now()
	}
	if err := m.sink.Publish(ctx, ev); err != nil {
		m.logger.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("could not publish event")
	}
}
