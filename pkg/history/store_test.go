package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "postbox-history-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := Open(filepath.Join(tmpDir, "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.UnixMilli(1700000000000)
	for i, method := range []string{"GET", "POST", "DELETE"} {
		_, err := store.Append(ctx, Entry{
			ExecutedAt: base.Add(time.Duration(i) * time.Second),
			Collection: "Users",
			Endpoint:   method + " user",
			Method:     method,
			URL:        "https://api.example.com/users",
			StatusCode: 200,
			Status:     "OK",
			DurationMs: int64(10 * (i + 1)),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Method != "DELETE" || entries[1].Method != "POST" {
		t.Errorf("order = %s, %s; want newest first", entries[0].Method, entries[1].Method)
	}
	if !entries[0].ExecutedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("ExecutedAt = %v", entries[0].ExecutedAt)
	}
	if entries[0].DurationMs != 30 || entries[0].Collection != "Users" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestStore_AppendFillsDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	saved, err := store.Append(ctx, Entry{Method: "GET", URL: "http://x.test", Error: "connection refused"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected a generated ID")
	}
	if saved.ExecutedAt.Before(before) {
		t.Errorf("ExecutedAt = %v, want now", saved.ExecutedAt)
	}

	entries, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != saved.ID || entries[0].Error != "connection refused" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestStore_RecentEmpty(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Recent() = %#v, want an empty slice", entries)
	}
}

func TestStore_Reopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "postbox-history-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	path := filepath.Join(tmpDir, "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Append(context.Background(), Entry{Method: "GET", URL: "http://x.test"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d after reopen, want 1", len(entries))
	}
}
