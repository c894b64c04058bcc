package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobscout/internal/logging"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	store := New(path, time.Hour, nil, logging.NewMultiLogger())

	data := &Data{
		CurrentURL:     "https://example.com/jobs?page=3",
		Cookies:        []Cookie{{Name: "auth", Value: "token", Domain: "example.com", Path: "/"}},
		LocalStorage:   map[string]string{"k": "v"},
		SessionStorage: map[string]string{"sk": "sv"},
		UserAgent:      "test-agent",
		WindowSize:     "1920,1080",
	}
	if err := store.Save(data, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected loaded session, got nil")
	}
	if loaded.CurrentURL != data.CurrentURL {
		t.Fatalf("CurrentURL mismatch: got %q want %q", loaded.CurrentURL, data.CurrentURL)
	}
	if len(loaded.Cookies) != 1 || loaded.Cookies[0].Name != "auth" {
		t.Fatalf("cookies did not round-trip: %+v", loaded.Cookies)
	}
}

func TestLoadExpiredByTTL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	store := New(path, time.Hour, nil, logging.NewMultiLogger())

	data := &Data{CurrentURL: "https://example.com", SavedAt: time.Now().Add(-2 * time.Hour)}
	if err := store.Save(data, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Save() overwrites SavedAt to now(); write an already-expired file directly instead.
	raw := []byte(`{"saved_at":"2000-01-01T00:00:00Z","current_url":"https://example.com"}`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	loaded, err := store.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for expired session, got %+v", loaded)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "missing.json"), time.Hour, nil, logging.NewMultiLogger())
	loaded, err := store.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatal("expected nil for missing session file")
	}
}
