package statestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore keeps all keys in a single JSON object on disk. Writes go through
// a temp file and rename so a crash never leaves a half-written file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

var _ Store = &FileStore{}

// NewFileStore loads path if it exists. A corrupt file is logged and treated as
// empty; it is overwritten on the next Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file state store: empty path")
	}
	s := &FileStore{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.values); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("state file is corrupt, starting empty")
				s.values = map[string]string{}
			}
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrap(err, "file state store: read")
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) flushLocked() error {
	if err := ensureDir(s.path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "file state store: marshal")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return errors.Wrap(err, "file state store: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file state store: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file state store: close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file state store: rename")
	}
	return nil
}
