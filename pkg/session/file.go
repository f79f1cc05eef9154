package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists sessions as JSON files and keeps the loaded sessions in memory,
// so callers share one mutex per session just as with MemoryStore. Every Set writes
// through to disk.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
	mem     *MemoryStore
}

// DefaultSessionDir returns ~/.config/flowcraft/sessions.
func DefaultSessionDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "flowcraft", "sessions"), nil
}

// NewFileStore creates a file-backed session store.
// If baseDir is empty, defaults to ~/.config/flowcraft/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := DefaultSessionDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, mem: NewMemoryStore()}, nil
}

// sessionPath only accepts uuid ids, which keeps lookups inside baseDir.
func (s *FileStore) sessionPath(id string) (string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return filepath.Join(s.baseDir, id+".json"), true
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.mem.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if stderrors.Is(err, ErrExpired) {
		_ = s.remove(id)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have loaded it while we waited.
	if sess, err := s.mem.Get(ctx, id); err == nil {
		return sess, nil
	}

	path, ok := s.sessionPath(id)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if s.mem.now().After(snap.ExpiresAt) {
		os.Remove(path)
		return nil, ErrExpired
	}
	sess, err = Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	_ = s.mem.Set(ctx, sess)
	return sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	path, ok := s.sessionPath(sess.ID)
	if !ok {
		return fmt.Errorf("invalid session id %q", sess.ID)
	}

	// Snapshot under the store lock so the last writer always saves the newest state.
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return s.mem.Set(ctx, sess)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	_ = s.mem.Delete(ctx, id)
	return s.remove(id)
}

func (s *FileStore) remove(id string) error {
	path, ok := s.sessionPath(id)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) Cleanup(ctx context.Context) (int, error) {
	if _, err := s.mem.Cleanup(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("read session dir: %w", err)
	}

	removed := 0
	now := s.mem.now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var snap struct {
			ExpiresAt time.Time `json:"expires_at"`
		}
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		if now.After(snap.ExpiresAt) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Len counts the session files on disk, expired or not.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			n++
		}
	}
	return n
}

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
