package tracker

import (
	"context"
	"testing"

	"studytrack-agent/internal/models"
	"studytrack-agent/internal/storage"
)

func newTestStore() *Store {
	return New(storage.NewActivityStore(storage.NewMemoryBackend()))
}

func videoRecord(id string, segments ...models.Segment) models.ActivityRecord {
	return models.ActivityRecord{
		ActivityID:  id,
		SourceID:    "slide-1",
		SourceType:  "video",
		StartTime:   0,
		EndTime:     10000,
		Metric:      10,
		Segments:    segments,
		SyncStatus:  models.SyncStale,
		NewActivity: true,
	}
}

func TestAddActivityCreatesNewRecord(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	rec := videoRecord("a1", models.Segment{ID: "s1", Start: 0, End: 10000})
	stored, err := store.AddActivity(ctx, models.KindVideo, rec, false)
	if err != nil {
		t.Fatalf("AddActivity failed: %v", err)
	}
	if stored.ActivityID != "a1" {
		t.Errorf("Expected activity id a1, got %q", stored.ActivityID)
	}

	records := store.StoredActivities(ctx, models.KindVideo)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Metric != 10 || !records[0].NewActivity || records[0].SyncStatus != models.SyncStale {
		t.Errorf("Record fields modified on create: %+v", records[0])
	}
}

func TestAddActivityGeneratesID(t *testing.T) {
	store := newTestStore()

	rec := videoRecord("", models.Segment{ID: "s1", Start: 0, End: 1000})
	stored, err := store.AddActivity(context.Background(), models.KindVideo, rec, false)
	if err != nil {
		t.Fatalf("AddActivity failed: %v", err)
	}
	if stored.ActivityID == "" {
		t.Error("Expected a generated activity id")
	}
}

func TestIdempotentSegmentMerge(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	seg := models.Segment{ID: "s1", Start: 0, End: 10000}
	store.AddActivity(ctx, models.KindVideo, videoRecord("a1", seg), false)

	// Re-adding the identical segment via update must not duplicate it.
	update := videoRecord("a1", seg, models.Segment{ID: "s2", Start: 10000, End: 20000})
	update.EndTime = 20000
	update.Metric = 20
	stored, err := store.AddActivity(ctx, models.KindVideo, update, true)
	if err != nil {
		t.Fatalf("AddActivity update failed: %v", err)
	}

	if len(stored.Segments) != 2 {
		t.Fatalf("Expected 2 segments after merge, got %d", len(stored.Segments))
	}
	if stored.Metric != 20 || stored.EndTime != 20000 {
		t.Errorf("Cumulative fields not overwritten: %+v", stored)
	}
	if stored.SyncStatus != models.SyncStale {
		t.Errorf("Expected STALE after update, got %s", stored.SyncStatus)
	}

	// And again: the same two segments a second time stays at 2.
	stored, _ = store.AddActivity(ctx, models.KindVideo, update, true)
	if len(stored.Segments) != 2 {
		t.Errorf("Merge is not idempotent: got %d segments", len(stored.Segments))
	}
}

func TestDedupIsStructuralNotIntervalBased(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	// Same time range, different ids: both must survive.
	store.AddActivity(ctx, models.KindVideo, videoRecord("a1",
		models.Segment{ID: "s1", Start: 0, End: 10000},
	), false)
	stored, _ := store.AddActivity(ctx, models.KindVideo, videoRecord("a1",
		models.Segment{ID: "s1", Start: 0, End: 10000},
		models.Segment{ID: "s1-regenerated", Start: 0, End: 10000},
	), true)

	if len(stored.Segments) != 2 {
		t.Fatalf("Expected both same-range segments retained, got %d", len(stored.Segments))
	}
}

func TestUpdatePreservesNewActivityFlag(t *testing.T) {
	tests := []struct {
		name string
		flag bool
	}{
		{"stays true", true},
		{"stays false", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore()
			ctx := context.Background()

			rec := videoRecord("a1", models.Segment{ID: "s1", Start: 0, End: 1000})
			rec.NewActivity = tc.flag
			store.AddActivity(ctx, models.KindVideo, rec, false)

			update := videoRecord("a1", models.Segment{ID: "s2", Start: 1000, End: 2000})
			update.NewActivity = !tc.flag // incoming flag must be ignored on update
			stored, _ := store.AddActivity(ctx, models.KindVideo, update, true)

			if stored.NewActivity != tc.flag {
				t.Errorf("new_activity flipped by update: expected %v, got %v", tc.flag, stored.NewActivity)
			}
		})
	}
}

func TestNonUpdateReplacesExistingRecord(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.AddActivity(ctx, models.KindVideo, videoRecord("a1",
		models.Segment{ID: "s1", Start: 0, End: 1000},
		models.Segment{ID: "s2", Start: 1000, End: 2000},
	), false)

	// Same id, isUpdate=false: stale copy dropped, incoming taken verbatim.
	fresh := videoRecord("a1", models.Segment{ID: "s9", Start: 0, End: 500})
	stored, _ := store.AddActivity(ctx, models.KindVideo, fresh, false)

	if len(stored.Segments) != 1 || stored.Segments[0].ID != "s9" {
		t.Errorf("Expected verbatim replacement, got %+v", stored.Segments)
	}

	records := store.StoredActivities(ctx, models.KindVideo)
	if len(records) != 1 {
		t.Errorf("Expected at most one record per activity id, got %d", len(records))
	}
}

func TestMarkAllSynced(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.AddActivity(ctx, models.KindPDF, videoRecord("a1", models.Segment{ID: "s1", Page: 1}), false)
	store.AddActivity(ctx, models.KindPDF, videoRecord("a2", models.Segment{ID: "s2", Page: 2}), false)

	records, err := store.MarkAllSynced(ctx, models.KindPDF)
	if err != nil {
		t.Fatalf("MarkAllSynced failed: %v", err)
	}
	for _, r := range records {
		if r.SyncStatus != models.SyncSynced || r.NewActivity {
			t.Errorf("Record not marked synced: %+v", r)
		}
	}
	if models.CountPending(records) != 0 {
		t.Errorf("Expected 0 pending, got %d", models.CountPending(records))
	}
}

func TestMirrorTracksMutations(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	store.AddActivity(ctx, models.KindVideo, videoRecord("a1", models.Segment{ID: "s1", Start: 0, End: 1000}), false)

	mirror := store.Mirror(models.KindVideo)
	if len(mirror) != 1 || mirror[0].ActivityID != "a1" {
		t.Fatalf("Mirror out of date after mutation: %+v", mirror)
	}

	// Mutating the returned copy must not leak into the mirror.
	mirror[0].Segments[0].ID = "tampered"
	again := store.Mirror(models.KindVideo)
	if again[0].Segments[0].ID != "s1" {
		t.Error("Mirror copy is aliased to internal state")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	updates, cancel := store.Subscribe()
	defer cancel()

	store.AddActivity(ctx, models.KindVideo, videoRecord("a1", models.Segment{ID: "s1", Start: 0, End: 1000}), false)

	select {
	case update := <-updates:
		if update.Kind != "video" || update.Pending != 1 {
			t.Errorf("Unexpected update: %+v", update)
		}
	default:
		t.Fatal("Expected a buffered update after AddActivity")
	}
}
