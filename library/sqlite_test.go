package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/audiotext/audiotext/content"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleContent() *content.ExtractedContent {
	return &content.ExtractedContent{
		Title:     "Understanding Goroutines",
		Content:   "Goroutines are lightweight threads managed by the Go runtime.",
		Author:    "Jane Smith",
		Platform:  "web",
		WordCount: 9,
		AICleaned: true,
	}
}

func TestAddAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.Add(ctx, sampleContent(), "https://example.com/goroutines")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if item.ID == "" {
		t.Fatal("Add() returned item without ID")
	}

	got, err := s.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Understanding Goroutines" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Author != "Jane Smith" {
		t.Errorf("Author = %q", got.Author)
	}
	if got.SourceURL != "https://example.com/goroutines" {
		t.Errorf("SourceURL = %q", got.SourceURL)
	}
	if !got.AICleaned {
		t.Error("AICleaned = false")
	}
	if got.Progress != 0 || got.Favorite {
		t.Errorf("new item progress/favorite = %d/%v, want 0/false", got.Progress, got.Favorite)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		c := sampleContent()
		c.Title = title
		if _, err := s.Add(ctx, c, ""); err != nil {
			t.Fatalf("Add(%q) error = %v", title, err)
		}
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("List() returned %d items, want 3", len(items))
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.Add(ctx, sampleContent(), "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := s.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete err = %v, want ErrNotFound", err)
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, item.ID); err != nil {
		t.Errorf("Delete() of missing item error = %v", err)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, sampleContent(), ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("List() after Clear returned %d items", len(items))
	}
}

func TestToggleFavorite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.Add(ctx, sampleContent(), "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	fav, err := s.ToggleFavorite(ctx, item.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if !fav {
		t.Error("first toggle = false, want true")
	}

	fav, err = s.ToggleFavorite(ctx, item.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if fav {
		t.Error("second toggle = true, want false")
	}

	if _, err := s.ToggleFavorite(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleFavorite(missing) err = %v, want ErrNotFound", err)
	}
}

func TestUpdateProgress(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.Add(ctx, sampleContent(), "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		percent int
		want    int
	}{
		{30, 30},
		{100, 100},
		{150, 100},
		{-5, 0},
	}
	for _, tt := range tests {
		if err := s.UpdateProgress(ctx, item.ID, tt.percent); err != nil {
			t.Fatalf("UpdateProgress(%d) error = %v", tt.percent, err)
		}
		got, err := s.Get(ctx, item.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Progress != tt.want {
			t.Errorf("Progress after UpdateProgress(%d) = %d, want %d", tt.percent, got.Progress, tt.want)
		}
	}

	// A deleted item must not fail a playback transition.
	if err := s.UpdateProgress(ctx, "no-such-id", 50); err != nil {
		t.Errorf("UpdateProgress(missing) error = %v", err)
	}
}

func TestExtractedRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item, err := s.Add(ctx, sampleContent(), "https://example.com/src")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	c := item.Extracted()
	if c.Title != item.Title || c.Content != item.Content || c.Author != item.Author {
		t.Error("Extracted() lost fields")
	}
	if c.Source != "https://example.com/src" {
		t.Errorf("Extracted().Source = %q", c.Source)
	}
}
