// Package library persists saved articles and their listening progress.
package library

import (
	"context"
	"errors"
	"time"

	"github.com/audiotext/audiotext/content"
)

// ErrNotFound indicates the requested library item does not exist.
var ErrNotFound = errors.New("library item not found")

// Item is one saved piece of content together with its listening state.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	WordCount int       `json:"word_count"`
	AICleaned bool      `json:"ai_cleaned"`
	Favorite  bool      `json:"favorite"`
	Progress  int       `json:"progress"` // percent listened, 0-100
	SavedAt   time.Time `json:"saved_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Extracted converts the item back into playable content.
func (i *Item) Extracted() *content.ExtractedContent {
	return &content.ExtractedContent{
		Title:     i.Title,
		Content:   i.Content,
		Author:    i.Author,
		Source:    i.SourceURL,
		Platform:  i.Platform,
		WordCount: i.WordCount,
		AICleaned: i.AICleaned,
	}
}

// Store is the persistence surface for the library.
type Store interface {
	// Add saves extracted content and returns the stored item with its
	// generated ID.
	Add(ctx context.Context, c *content.ExtractedContent, sourceURL string) (*Item, error)

	// Get returns one item by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// List returns all items, newest first.
	List(ctx context.Context) ([]*Item, error)

	// Delete removes one item. Deleting a missing item is not an error.
	Delete(ctx context.Context, id string) error

	// Clear removes every item.
	Clear(ctx context.Context) error

	// ToggleFavorite flips the favorite flag and returns the new value.
	ToggleFavorite(ctx context.Context, id string) (bool, error)

	// UpdateProgress records percent listened, clamped to 0-100. Missing
	// items are ignored so a deleted item cannot fail a playback
	// transition.
	UpdateProgress(ctx context.Context, id string, percent int) error

	// Close releases the underlying database.
	Close() error
}
