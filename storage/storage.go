package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"typing-simulator/config"
	"typing-simulator/logger"
)

var (
	// ErrNotFound means nothing has been stored yet
	ErrNotFound = errors.New("settings not stored")
	// ErrConfigUnavailable wraps any read or write failure of the store
	ErrConfigUnavailable = errors.New("configuration store unavailable")
)

// SettingsStore defines the interface for settings persistence
type SettingsStore interface {
	// Load returns the stored record. Fields absent from storage are nil.
	Load() (config.Update, error)
	Save(s config.Settings) error
}

// JSONStore implements SettingsStore with JSON file backing
type JSONStore struct {
	mu   sync.RWMutex
	File string
	Log  logger.Logger

	// last content written by Save, used to ignore our own watch events
	lastWritten []byte
}

// NewJSONStore creates a new store backed by a JSON file
func NewJSONStore(path string, log logger.Logger) *JSONStore {
	return &JSONStore{File: path, Log: log}
}

// Load reads the stored record
func (s *JSONStore) Load() (config.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *JSONStore) read() (config.Update, error) {
	var u config.Update
	content, err := os.ReadFile(s.File)
	if err != nil {
		if os.IsNotExist(err) {
			return u, ErrNotFound
		}
		return u, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return u, ErrNotFound
	}
	if err := json.Unmarshal(content, &u); err != nil {
		return u, fmt.Errorf("%w: decode %s: %w", ErrConfigUnavailable, s.File, err)
	}
	return u, nil
}

// Save writes the full settings record, replacing the file atomically
func (s *JSONStore) Save(settings config.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	if err := s.persist(data); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	s.lastWritten = data
	return nil
}

func (s *JSONStore) persist(data []byte) error {
	dir := filepath.Dir(s.File)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.File)
}

// Watch reloads the file whenever another process changes it and hands the
// record to onChange. It returns once the watcher is set up; watching stops
// when ctx is done.
func (s *JSONStore) Watch(ctx context.Context, onChange func(config.Update)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory so atomic renames are seen
	dir := filepath.Dir(s.File)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go s.watchLoop(ctx, watcher, onChange)
	return nil
}

func (s *JSONStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(config.Update)) {
	defer watcher.Close()

	var debounceTimer *time.Timer
	const debounceDelay = 100 * time.Millisecond
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.File) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if ctx.Err() != nil {
					return
				}
				s.reload(onChange)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.Log.Warn("Settings watcher error", "error", err)
		}
	}
}

func (s *JSONStore) reload(onChange func(config.Update)) {
	s.mu.RLock()
	content, err := os.ReadFile(s.File)
	own := err == nil && s.lastWritten != nil && bytes.Equal(content, s.lastWritten)
	s.mu.RUnlock()
	if err != nil || own {
		return
	}

	u, err := s.Load()
	if err != nil {
		s.Log.Warn("Ignoring unreadable settings change", "file", s.File, "error", err)
		return
	}
	s.Log.Info("Settings file changed", "file", s.File)
	onChange(u)
}
