package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Compile-time assertion that FileStore satisfies the Store interface.
var _ Store = (*FileStore)(nil)

// FileStore keeps one JSON file per guild under a data directory. The file
// holds an array of {id, nickname} records.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the data directory if needed and returns a FileStore
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create data dir %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Save implements [Store.Save].
func (s *FileStore) Save(_ context.Context, guildID string, snap Snapshot) error {
	recs, err := encodeRecords(snap)
	if err != nil {
		return err
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("backup: encode snapshot for guild %s: %w", guildID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(guildID), data, 0o644); err != nil {
		return fmt.Errorf("%w: write guild %s: %v", ErrStorage, guildID, err)
	}
	return nil
}

// Load implements [Store.Load]. A missing file yields an empty Snapshot.
func (s *FileStore) Load(_ context.Context, guildID string) (Snapshot, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path(guildID))
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read guild %s: %v", ErrStorage, guildID, err)
	}

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: decode guild %s: %v", ErrStorage, guildID, err)
	}
	return decodeRecords(recs), nil
}

// Delete implements [Store.Delete].
func (s *FileStore) Delete(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(guildID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete guild %s: %v", ErrStorage, guildID, err)
	}
	return nil
}

func (s *FileStore) path(guildID string) string {
	return filepath.Join(s.dir, guildID+".json")
}
