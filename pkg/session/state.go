package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatwidget/pkg/persistence/statestore"
)

const (
	KeySessionID           = "sessionId"
	KeyConversationHistory = "conversationHistory"
	KeyTheme               = "theme"
)

// State owns everything the widget persists: the session id, the bounded
// conversation history and the theme. All accessors are safe for concurrent
// use; every mutation is written through to the store.
type State struct {
	mu        sync.RWMutex
	store     statestore.Store
	sessionID string
	entries   []Entry
	theme     Theme
}

// LoadState reads state from store, creating and persisting a session id on
// first use. A corrupt history or theme value is replaced by its default.
func LoadState(ctx context.Context, store statestore.Store, now time.Time) (*State, error) {
	s := &State{store: store, theme: ThemeLight}

	id, ok, err := store.Get(ctx, KeySessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load session id")
	}
	if !ok || id == "" {
		id = NewSessionID(now)
		if err := store.Set(ctx, KeySessionID, id); err != nil {
			return nil, errors.Wrap(err, "persist session id")
		}
	}
	s.sessionID = id

	raw, ok, err := store.Get(ctx, KeyConversationHistory)
	if err != nil {
		return nil, errors.Wrap(err, "load conversation history")
	}
	if ok && raw != "" {
		var entries []Entry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("stored conversation history is corrupt, starting empty")
		} else {
			if len(entries) > MaxHistory {
				entries = entries[len(entries)-MaxHistory:]
			}
			s.entries = entries
		}
	}

	rawTheme, ok, err := store.Get(ctx, KeyTheme)
	if err != nil {
		return nil, errors.Wrap(err, "load theme")
	}
	if ok {
		if t, err := ParseTheme(rawTheme); err == nil {
			s.theme = t
		}
	}

	return s, nil
}

func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Entries returns a copy of the history, oldest first.
func (s *State) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *State) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Append adds e, evicts beyond MaxHistory and persists the whole list. The
// in-memory history keeps e even when persisting fails.
func (s *State) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = appendBounded(s.entries, e, MaxHistory)
	return s.persistLocked(ctx)
}

func (s *State) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(ctx, KeyConversationHistory); err != nil {
		return errors.Wrap(err, "remove conversation history")
	}
	s.entries = nil
	return nil
}

func (s *State) SetTheme(ctx context.Context, t Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
	if err := s.store.Set(ctx, KeyTheme, string(t)); err != nil {
		return errors.Wrap(err, "persist theme")
	}
	return nil
}

func (s *State) persistLocked(ctx context.Context) error {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encode conversation history")
	}
	if err := s.store.Set(ctx, KeyConversationHistory, string(data)); err != nil {
		return errors.Wrap(err, "persist conversation history")
	}
	return nil
}
