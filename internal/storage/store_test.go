package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"studytrack-agent/internal/models"
)

func TestActivityStoreLoadMissingKey(t *testing.T) {
	store := NewActivityStore(NewMemoryBackend())

	records := store.Load(context.Background(), models.KindVideo)
	if len(records) != 0 {
		t.Errorf("Expected empty set for missing key, got %d records", len(records))
	}
}

func TestActivityStoreCorruptBlobFailsOpen(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Save(context.Background(), models.KindVideo.StorageKey, []byte("{{{ corrupt"))

	store := NewActivityStore(backend)
	records := store.Load(context.Background(), models.KindVideo)
	if len(records) != 0 {
		t.Errorf("Expected empty set for corrupt blob, got %d records", len(records))
	}
}

func TestActivityStoreSaveLoad(t *testing.T) {
	store := NewActivityStore(NewMemoryBackend())
	ctx := context.Background()

	store.Save(ctx, models.KindPDF, sampleRecords())

	loaded := store.Load(ctx, models.KindPDF)
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}
	if loaded[0].ActivityID != "a1" || loaded[1].SyncStatus != models.SyncSynced {
		t.Errorf("Records changed across save/load: %+v", loaded)
	}
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	ctx := context.Background()

	if _, ok, _ := backend.Load(ctx, "video_tracking_data"); ok {
		t.Error("Expected ok=false for unwritten key")
	}

	if err := backend.Save(ctx, "video_tracking_data", []byte(`{"data":[]}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	blob, ok, err := backend.Load(ctx, "video_tracking_data")
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if string(blob) != `{"data":[]}` {
		t.Errorf("Unexpected blob: %s", blob)
	}

	// Overwrite replaces the whole blob.
	if err := backend.Save(ctx, "video_tracking_data", []byte(`{"data":[1]}`)); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	blob, _, _ = backend.Load(ctx, "video_tracking_data")
	if string(blob) != `{"data":[1]}` {
		t.Errorf("Overwrite did not replace blob: %s", blob)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}
