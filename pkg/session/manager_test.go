package session

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatwidget/pkg/analytics"
	"github.com/go-go-golems/chatwidget/pkg/api"
	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/persistence/statestore"
)

var errOffline = errors.New("connection refused")

type fakeBackend struct {
	mu            sync.Mutex
	chatFn        func(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	quickErr      error
	suggestErr    error
	statsErr      error
	chatRequests  []api.ChatRequest
	suggestedCats []string
}

func (f *fakeBackend) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.chatRequests = append(f.chatRequests, req)
	fn := f.chatFn
	f.mu.Unlock()
	if fn == nil {
		return &api.ChatResponse{Response: "ok: " + req.Message}, nil
	}
	return fn(ctx, req)
}

func (f *fakeBackend) QuickActions(context.Context) ([]api.QuickAction, error) {
	if f.quickErr != nil {
		return nil, f.quickErr
	}
	return []api.QuickAction{{Icon: "📅", Text: "Exam Schedule", Color: "#3B82F6"}}, nil
}

func (f *fakeBackend) Suggestions(_ context.Context, category string) ([]string, error) {
	f.mu.Lock()
	f.suggestedCats = append(f.suggestedCats, category)
	f.mu.Unlock()
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return []string{category + " timetable"}, nil
}

func (f *fakeBackend) Statistics(context.Context) (*analytics.Snapshot, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &analytics.Snapshot{TotalQueries: analytics.Int(42), SuccessRate: analytics.Float(91)}, nil
}

func (f *fakeBackend) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatRequests)
}

func (f *fakeBackend) categories() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.suggestedCats...)
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestManager(t *testing.T, store statestore.Store, backend Backend, opts ...Option) (*Manager, *events.Recorder) {
	t.Helper()
	if store == nil {
		store = statestore.NewMemoryStore()
	}
	state, err := LoadState(context.Background(), store, fixedNow)
	require.NoError(t, err)
	rec := &events.Recorder{}
	opts = append([]Option{WithRenderDelay(0), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewManager(state, backend, rec, opts...), rec
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Kind)
	}
	return out
}

func TestLoadState_CreatesAndReusesSessionID(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()

	s, err := LoadState(ctx, store, fixedNow)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^session_%d_[0-9a-z]{9}$`, fixedNow.UnixMilli())), s.SessionID())
	require.Equal(t, ThemeLight, s.Theme())
	require.Equal(t, 0, s.Len())

	persisted, ok, err := store.Get(ctx, KeySessionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, s.SessionID(), persisted)

	again, err := LoadState(ctx, store, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, s.SessionID(), again.SessionID())
}

func TestLoadState_CorruptValuesFallBack(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyConversationHistory, "[{broken"))
	require.NoError(t, store.Set(ctx, KeyTheme, "sepia"))

	s, err := LoadState(ctx, store, fixedNow)
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
	require.Equal(t, ThemeLight, s.Theme())
}

func TestSend_HistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	m, _ := newTestManager(t, store, &fakeBackend{})

	for i := 0; i < 105; i++ {
		_, err := m.Send(ctx, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}

	entries := m.State().Entries()
	require.Len(t, entries, MaxHistory)
	require.Equal(t, "q5", entries[0].Query)
	require.Equal(t, "q104", entries[len(entries)-1].Query)

	raw, ok, err := store.Get(ctx, KeyConversationHistory)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted []Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Equal(t, entries, persisted)
}

func TestSend_FewerThanMax(t *testing.T) {
	m, _ := newTestManager(t, nil, &fakeBackend{})
	for i := 0; i < 3; i++ {
		_, err := m.Send(context.Background(), fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.State().Len())
}

func TestSend_EmptyInput(t *testing.T) {
	backend := &fakeBackend{}
	m, rec := newTestManager(t, nil, backend)

	for _, in := range []string{"", "   ", "\n\t "} {
		ex, err := m.Send(context.Background(), in)
		require.ErrorIs(t, err, ErrEmptyMessage)
		require.Nil(t, ex)
	}
	require.Equal(t, 0, backend.chatCount())
	require.Empty(t, rec.Events())
}

func TestSend_FailureEmitsOneErrorAndKeepsHistory(t *testing.T) {
	backend := &fakeBackend{chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
		return nil, errOffline
	}}
	m, rec := newTestManager(t, nil, backend)

	_, err := m.Send(context.Background(), "  hello  ")
	require.Error(t, err)
	require.ErrorIs(t, err, errOffline)
	require.Equal(t, 0, m.State().Len())

	errs := rec.OfKind(events.KindError)
	require.Len(t, errs, 1)
	require.Equal(t, ConnectionErrorText, errs[0].Text)
	require.Empty(t, rec.OfKind(events.KindBotMessage))
	require.Equal(t, []events.Kind{events.KindUserMessage, events.KindTyping, events.KindTyping, events.KindError}, kinds(rec.Events()))
	require.Equal(t, "hello", rec.Events()[0].Text)
	require.Equal(t, 1, backend.chatCount())
}

func TestSend_ExamsExample(t *testing.T) {
	conf := 0.92
	backend := &fakeBackend{chatFn: func(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
		return &api.ChatResponse{Response: "Exams start March 3", Category: "exams", Confidence: &conf}, nil
	}}
	m, rec := newTestManager(t, nil, backend)

	ex, err := m.Send(context.Background(), "When are the mid-term exams?")
	require.NoError(t, err)
	require.True(t, ex.Latest)

	entries := m.State().Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "When are the mid-term exams?", entries[0].Query)
	require.Equal(t, "Exams start March 3", entries[0].Response)
	require.Equal(t, "exams", entries[0].Category)
	require.NotNil(t, entries[0].Confidence)
	require.Equal(t, 0.92, *entries[0].Confidence)
	require.Equal(t, "2026-03-01T09:30:00.000Z", entries[0].Timestamp)

	require.Equal(t, []string{"exams"}, backend.categories())
	require.Equal(t, m.State().SessionID(), backend.chatRequests[0].SessionID)

	require.Equal(t, []events.Kind{
		events.KindUserMessage,
		events.KindTyping,
		events.KindTyping,
		events.KindBotMessage,
		events.KindStatistics,
		events.KindSuggestions,
	}, kinds(rec.Events()))
	evs := rec.Events()
	require.True(t, evs[1].Typing)
	require.False(t, evs[2].Typing)
	require.Equal(t, uint64(1), evs[3].RequestID)
	require.Equal(t, 42, evs[4].Metrics.TotalQueries)
	require.Equal(t, []string{"exams timetable"}, evs[5].Suggestions)
	require.Empty(t, rec.OfKind(events.KindNotification))
}

func TestSend_NoCategoryUsesDefault(t *testing.T) {
	backend := &fakeBackend{}
	m, _ := newTestManager(t, nil, backend, WithDefaultCategory("campus"))
	_, err := m.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, []string{"campus"}, backend.categories())
}

type failingStore struct {
	statestore.Store
	failKey string
}

func (f failingStore) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func (f failingStore) Remove(ctx context.Context, key string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Store.Remove(ctx, key)
}

func TestSend_PersistFailureIsNotFatal(t *testing.T) {
	store := failingStore{Store: statestore.NewMemoryStore(), failKey: KeyConversationHistory}
	m, rec := newTestManager(t, store, &fakeBackend{})

	_, err := m.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, 1, m.State().Len())
	require.Len(t, rec.OfKind(events.KindBotMessage), 1)
	require.Empty(t, rec.OfKind(events.KindError))
}

func TestSend_OnlyLatestRefreshesSuggestions(t *testing.T) {
	firstArrived := make(chan struct{})
	releaseFirst := make(chan struct{})
	backend := &fakeBackend{chatFn: func(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
		if req.Message == "first" {
			close(firstArrived)
			<-releaseFirst
			return &api.ChatResponse{Response: "fees due", Category: "fees"}, nil
		}
		return &api.ChatResponse{Response: "exams soon", Category: "exams"}, nil
	}}
	m, rec := newTestManager(t, nil, backend)

	type result struct {
		ex  *Exchange
		err error
	}
	firstDone := make(chan result, 1)
	go func() {
		ex, err := m.Send(context.Background(), "first")
		firstDone <- result{ex, err}
	}()
	<-firstArrived

	second, err := m.Send(context.Background(), "second")
	require.NoError(t, err)
	require.True(t, second.Latest)
	require.Equal(t, uint64(2), second.RequestID)

	close(releaseFirst)
	first := <-firstDone
	require.NoError(t, first.err)
	require.False(t, first.ex.Latest)

	require.Equal(t, []string{"exams"}, backend.categories())

	entries := m.State().Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "second", entries[0].Query)
	require.Equal(t, "first", entries[1].Query)

	typing := rec.OfKind(events.KindTyping)
	require.Len(t, typing, 2)
	require.True(t, typing[0].Typing)
	require.False(t, typing[1].Typing)
}

func TestRefresh_FallbacksOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{quickErr: errOffline, suggestErr: errOffline, statsErr: errOffline}
	m, rec := newTestManager(t, nil, backend)

	qa := m.RefreshQuickActions(ctx)
	require.Error(t, qa.Err)
	sg := m.RefreshSuggestions(ctx, "")
	require.Error(t, sg.Err)
	st := m.RefreshStatistics(ctx, true)
	require.True(t, st.Fallback)

	require.Equal(t, api.FallbackQuickActions(), m.QuickActions())
	require.Equal(t, api.FallbackSuggestions(), m.Suggestions())
	require.Equal(t, 156, m.Metrics().TotalQueries)
	require.Equal(t, 24, st.Metrics.UniqueUsers)
	require.Equal(t, []string{DefaultCategory}, backend.categories())

	evs := rec.Events()
	require.Equal(t, []events.Kind{
		events.KindQuickActions,
		events.KindSuggestions,
		events.KindStatistics,
		events.KindNotification,
	}, kinds(evs))
	require.True(t, evs[0].Fallback)
	require.Len(t, evs[0].QuickActions, 8)
	require.True(t, evs[1].Fallback)
	require.Len(t, evs[1].Suggestions, 8)
	require.True(t, evs[2].Fallback)
	require.Equal(t, StatsOfflineText, evs[3].Text)
}

func TestRefreshStatistics_FallbackUsesHistoryLength(t *testing.T) {
	backend := &fakeBackend{statsErr: errOffline}
	m, _ := newTestManager(t, nil, backend)
	for i := 0; i < 4; i++ {
		_, err := m.Send(context.Background(), "q")
		require.NoError(t, err)
	}
	st := m.RefreshStatistics(context.Background(), false)
	require.Equal(t, 4, st.Metrics.TotalQueries)
}

func TestRefresh_Success(t *testing.T) {
	m, rec := newTestManager(t, nil, &fakeBackend{})
	ctx := context.Background()

	qa := m.RefreshQuickActions(ctx)
	require.NoError(t, qa.Err)
	require.Len(t, m.QuickActions(), 1)

	st := m.RefreshStatistics(ctx, true)
	require.False(t, st.Fallback)
	require.Equal(t, 42, st.Metrics.TotalQueries)
	require.Equal(t, 91, st.Metrics.Accuracy)

	notes := rec.OfKind(events.KindNotification)
	require.Len(t, notes, 1)
	require.Equal(t, StatsUpdatedText, notes[0].Text)
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	m, rec := newTestManager(t, store, &fakeBackend{})

	asked := 0
	answer := false
	confirm := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		asked++
		require.True(t, strings.HasPrefix(prompt, "Are you sure"))
		return answer, nil
	})

	cleared, err := m.ClearHistory(ctx, confirm)
	require.NoError(t, err)
	require.False(t, cleared)
	require.Equal(t, 0, asked)

	_, err = m.Send(ctx, "hi")
	require.NoError(t, err)
	rec.Reset()

	cleared, err = m.ClearHistory(ctx, confirm)
	require.NoError(t, err)
	require.False(t, cleared)
	require.Equal(t, 1, asked)
	require.Equal(t, 1, m.State().Len())
	require.Empty(t, rec.Events())

	answer = true
	cleared, err = m.ClearHistory(ctx, confirm)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Equal(t, 0, m.State().Len())
	_, ok, err := store.Get(ctx, KeyConversationHistory)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []events.Kind{events.KindHistoryCleared, events.KindNotification}, kinds(rec.Events()))
	require.Equal(t, HistoryClearedText, rec.Events()[1].Text)

	_, ok, err = store.Get(ctx, KeySessionID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClearHistory_RemoveFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	mem := statestore.NewMemoryStore()
	m, rec := newTestManager(t, mem, &fakeBackend{})
	_, err := m.Send(ctx, "hi")
	require.NoError(t, err)
	persisted, ok, err := mem.Get(ctx, KeyConversationHistory)
	require.NoError(t, err)
	require.True(t, ok)
	rec.Reset()

	state, err := LoadState(ctx, failingStore{Store: mem, failKey: KeyConversationHistory}, fixedNow)
	require.NoError(t, err)
	m = NewManager(state, &fakeBackend{}, rec, WithRenderDelay(0))
	require.Equal(t, 1, m.State().Len())

	cleared, err := m.ClearHistory(ctx, ConfirmFunc(func(context.Context, string) (bool, error) {
		return true, nil
	}))
	require.Error(t, err)
	require.False(t, cleared)
	require.Equal(t, 1, m.State().Len())
	require.Empty(t, rec.Events())

	still, ok, err := mem.Get(ctx, KeyConversationHistory)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, persisted, still)
}

func TestClearHistory_ConfirmError(t *testing.T) {
	m, _ := newTestManager(t, nil, &fakeBackend{})
	_, err := m.Send(context.Background(), "hi")
	require.NoError(t, err)

	_, err = m.ClearHistory(context.Background(), ConfirmFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("no tty")
	}))
	require.Error(t, err)
	require.Equal(t, 1, m.State().Len())
}

func TestToggleTheme(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	m, rec := newTestManager(t, store, &fakeBackend{})

	next, err := m.ToggleTheme(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeDark, next)
	require.Equal(t, "Switched to dark theme", rec.OfKind(events.KindNotification)[0].Text)

	reloaded, err := LoadState(ctx, store, fixedNow)
	require.NoError(t, err)
	require.Equal(t, ThemeDark, reloaded.Theme())

	next, err = m.ToggleTheme(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, next)
}

func TestRecentHistory(t *testing.T) {
	m, _ := newTestManager(t, nil, &fakeBackend{})
	require.Empty(t, m.RecentHistory(0))

	long := strings.Repeat("é", 120)
	for i := 0; i < 11; i++ {
		_, err := m.Send(context.Background(), fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	_, err := m.Send(context.Background(), long)
	require.NoError(t, err)

	recent := m.RecentHistory(0)
	require.Len(t, recent, DefaultRecentCount)
	require.Equal(t, strings.Repeat("é", 80)+"...", recent[0].Query)
	require.Equal(t, "ok: "+strings.Repeat("é", 96)+"...", recent[0].Response)
	require.Equal(t, "q10", recent[1].Query)
	require.Equal(t, "q2", recent[9].Query)

	require.Len(t, m.RecentHistory(3), 3)
}

func TestGreetingAndWelcome(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2026, 1, 1, h, 0, 0, 0, time.Local) }
	require.Equal(t, "Good morning", Greeting(day(0)))
	require.Equal(t, "Good morning", Greeting(day(11)))
	require.Equal(t, "Good afternoon", Greeting(day(12)))
	require.Equal(t, "Good afternoon", Greeting(day(17)))
	require.Equal(t, "Good evening", Greeting(day(18)))

	m, rec := newTestManager(t, nil, &fakeBackend{})
	text := m.Welcome(context.Background())
	require.Contains(t, text, "I'm your AI Student Assistant")
	require.Len(t, rec.OfKind(events.KindBotMessage), 1)
	require.Equal(t, 0, m.State().Len())
}

func TestRun_LoadsThenPolls(t *testing.T) {
	m, rec := newTestManager(t, nil, &fakeBackend{}, WithStatsInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(rec.OfKind(events.KindStatistics)) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, rec.OfKind(events.KindQuickActions), 1)
	require.Len(t, rec.OfKind(events.KindSuggestions), 1)
	notes := rec.OfKind(events.KindNotification)
	require.Len(t, notes, 1)
	require.Equal(t, StatsUpdatedText, notes[0].Text)
}
