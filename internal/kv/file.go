package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileStore is a durable Store persisted as a single JSON document.
// Every write rewrites the file atomically (temp file + rename). A
// corrupt or missing file loads as an empty store; durable state is
// best-effort, not a source of truth.
type FileStore struct {
	mu       sync.Mutex
	path     string
	data     map[string]json.RawMessage
	log      *slog.Logger
	watcher  *fsnotify.Watcher
	onChange []func()
	lastSave time.Time
}

// NewFile opens (or creates) a file-backed store at path.
func NewFile(path string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kv: create store dir: %w", err)
	}

	s := &FileStore{
		path: path,
		data: make(map[string]json.RawMessage),
		log:  log,
	}
	s.load()
	return s, nil
}

// load reads the backing file into memory. Corrupt content degrades to
// an empty store with a warning.
func (s *FileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read store file, starting empty", "path", s.path, "error", err)
		}
		s.data = make(map[string]json.RawMessage)
		return
	}

	data := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("store file is corrupt, starting empty", "path", s.path, "error", err)
		s.data = make(map[string]json.RawMessage)
		return
	}
	s.data = data
}

// save persists the current map. Must be called with mu held.
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".kv-*")
	if err != nil {
		return fmt.Errorf("kv: create temp file: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("kv: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("kv: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("kv: replace store file: %w", err)
	}

	s.lastSave = time.Now()
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	out := make(json.RawMessage, len(value))
	copy(out, value)
	return out, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	stored := make(json.RawMessage, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = stored
	return s.save()
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return s.save()
}

func (s *FileStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Watch registers fn to run whenever another process rewrites the
// backing file. Reconciliation is last-writer-wins: the store reloads
// the file and fn is expected to refresh any derived in-memory state.
func (s *FileStore) Watch(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onChange = append(s.onChange, fn)
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("kv: create watcher: %w", err)
	}
	// Watch the directory: atomic rename replaces the file inode, so
	// watching the file itself would go stale after the first save.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("kv: watch store dir: %w", err)
	}
	s.watcher = watcher

	go s.watchLoop(watcher)
	return nil
}

func (s *FileStore) watchLoop(watcher *fsnotify.Watcher) {
	name := filepath.Base(s.path)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			s.mu.Lock()
			// Skip events caused by our own save; anything this close
			// to a local write is treated as ours (accepted last-writer-
			// wins limitation).
			if time.Since(s.lastSave) < 250*time.Millisecond {
				s.mu.Unlock()
				continue
			}
			s.load()
			callbacks := make([]func(), len(s.onChange))
			copy(callbacks, s.onChange)
			s.mu.Unlock()

			for _, fn := range callbacks {
				fn()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("store watcher error", "path", s.path, "error", err)
		}
	}
}

// Close stops the file watcher if one is running.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}
