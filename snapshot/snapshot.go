// Package snapshot persists the last playback session so a restart can
// restore the reading position.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"

	"github.com/audiotext/audiotext/content"
)

// Snapshot is the persisted shape of one session. Transient flags
// (playing, extracting, error) are deliberately absent: a restored session
// always comes back paused.
type Snapshot struct {
	SourceURL         string                    `json:"source_url,omitempty"`
	Content           *content.ExtractedContent `json:"content"`
	Chunks            []string                  `json:"chunks"`
	CurrentChunkIndex int                       `json:"current_chunk_index"`
	ElapsedTime       float64                   `json:"elapsed_time"`
	TotalDuration     float64                   `json:"total_duration"`
	Speed             float64                   `json:"speed"`
	LibraryItemID     string                    `json:"library_item_id,omitempty"`
}

// Store is the narrow persistence port the player writes through.
type Store interface {
	// Save replaces the stored snapshot.
	Save(s *Snapshot) error

	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load() (*Snapshot, error)
}

// FileStore keeps the snapshot as a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed snapshot store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the snapshot location under the user's data dir.
func DefaultPath() (string, error) {
	scope := gap.NewScope(gap.User, "audiotext")
	dir, err := scope.DataPath("")
	if err != nil {
		return "", fmt.Errorf("unable to locate data dir: %w", err)
	}
	return filepath.Join(dir, "player_state.json"), nil
}

// Save implements Store. The write is atomic so a crash mid-write never
// corrupts the previous snapshot.
func (f *FileStore) Save(s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("unable to create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("unable to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("unable to replace snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (f *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unable to decode snapshot: %w", err)
	}
	if s.Content == nil || len(s.Chunks) == 0 {
		// Nothing worth restoring.
		return nil, nil
	}
	return &s, nil
}
