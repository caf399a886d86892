package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gap "github.com/muesli/go-app-paths"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/audiotext/audiotext/content"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	platform   TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	ai_cleaned INTEGER NOT NULL DEFAULT 0,
	favorite   INTEGER NOT NULL DEFAULT 0,
	progress   INTEGER NOT NULL DEFAULT 0,
	saved_at   TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_saved_at ON items (saved_at DESC);
`

// SQLiteStore keeps the library in a single sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the per-user database location.
func DefaultDBPath() (string, error) {
	return gap.NewScope(gap.User, "audiotext").DataPath("library.db")
}

// OpenSQLite opens (creating if needed) the library database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent progress updates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing library schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Add saves extracted content as a new item.
func (s *SQLiteStore) Add(ctx context.Context, c *content.ExtractedContent, sourceURL string) (*Item, error) {
	if c == nil {
		return nil, fmt.Errorf("nothing to save")
	}

	now := time.Now().UTC()
	item := &Item{
		ID:        uuid.NewString(),
		Title:     c.Title,
		Content:   c.Content,
		Author:    c.Author,
		SourceURL: sourceURL,
		Platform:  c.Platform,
		WordCount: c.WordCount,
		AICleaned: c.AICleaned,
		SavedAt:   now,
		UpdatedAt: now,
	}
	if item.SourceURL == "" {
		item.SourceURL = c.Source
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, title, content, author, source_url, platform,
			word_count, ai_cleaned, favorite, progress, saved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		item.ID, item.Title, item.Content, item.Author, item.SourceURL,
		item.Platform, item.WordCount, item.AICleaned, item.SavedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("saving library item: %w", err)
	}
	return item, nil
}

// Get returns one item by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, author, source_url, platform,
			word_count, ai_cleaned, favorite, progress, saved_at, updated_at
		FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading library item: %w", err)
	}
	return item, nil
}

// List returns all items, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, author, source_url, platform,
			word_count, ai_cleaned, favorite, progress, saved_at, updated_at
		FROM items ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning library item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes one item.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting library item: %w", err)
	}
	return nil
}

// Clear removes every item.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items`)
	if err != nil {
		return fmt.Errorf("clearing library: %w", err)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *SQLiteStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET favorite = NOT favorite, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}

	var fav bool
	if err := s.db.QueryRowContext(ctx, `SELECT favorite FROM items WHERE id = ?`, id).Scan(&fav); err != nil {
		return false, fmt.Errorf("reading favorite flag: %w", err)
	}
	return fav, nil
}

// UpdateProgress records percent listened. Values clamp to 0-100 and
// missing items are ignored.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, percent int) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE items SET progress = ?, updated_at = ? WHERE id = ?`,
		percent, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.Title, &item.Content, &item.Author, &item.SourceURL,
		&item.Platform, &item.WordCount, &item.AICleaned, &item.Favorite,
		&item.Progress, &item.SavedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
