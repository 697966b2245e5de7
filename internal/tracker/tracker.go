package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"studytrack-agent/internal/models"
	"studytrack-agent/internal/storage"
)

// Store is the tracking facade the handlers and the sync engine go through.
// Every mutation runs read-merge-write under a per-storage-key mutex, writes
// through to durable storage, refreshes the in-memory mirror and notifies
// subscribers. Without the lock two rapid playback events could interleave
// between load and save and lose one of the writes.
type Store struct {
	store *storage.ActivityStore

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex

	mirrorMu sync.RWMutex
	mirror   map[string][]models.ActivityRecord

	subMu sync.Mutex
	subs  map[chan models.TrackingUpdate]struct{}
}

func New(store *storage.ActivityStore) *Store {
	return &Store{
		store:  store,
		keys:   make(map[string]*sync.Mutex),
		mirror: make(map[string][]models.ActivityRecord),
		subs:   make(map[chan models.TrackingUpdate]struct{}),
	}
}

func (t *Store) lock(kind models.Kind) *sync.Mutex {
	t.keyMu.Lock()
	defer t.keyMu.Unlock()

	mu, ok := t.keys[kind.StorageKey]
	if !ok {
		mu = &sync.Mutex{}
		t.keys[kind.StorageKey] = mu
	}
	return mu
}

// Mutate runs fn over the current record set for kind while holding the
// kind's key lock. The set fn returns is persisted, mirrored and broadcast
// even when fn also returns an error (a sync pass saves partial progress).
// Returning a nil set skips persistence.
func (t *Store) Mutate(ctx context.Context, kind models.Kind, fn func([]models.ActivityRecord) ([]models.ActivityRecord, error)) ([]models.ActivityRecord, error) {
	mu := t.lock(kind)
	mu.Lock()
	defer mu.Unlock()

	records := t.store.Load(ctx, kind)
	out, err := fn(records)
	if out == nil {
		return nil, err
	}

	t.store.Save(ctx, kind, out)
	t.setMirror(kind, out)
	t.notify(kind, out)
	return out, err
}

// AddActivity merges one incoming observation into the persisted set.
//
// isUpdate with a matching record means the incoming values are cumulative:
// time bounds and metric overwrite the stored ones, segments are unioned by
// structural identity, the record goes back to STALE and keeps its
// new_activity flag. Otherwise the incoming record replaces any stored one
// with the same id verbatim.
func (t *Store) AddActivity(ctx context.Context, kind models.Kind, incoming models.ActivityRecord, isUpdate bool) (models.ActivityRecord, error) {
	if incoming.ActivityID == "" {
		incoming.ActivityID = uuid.NewString()
	}
	if incoming.SyncStatus == "" {
		incoming.SyncStatus = models.SyncStale
	}
	if incoming.Segments == nil {
		incoming.Segments = []models.Segment{}
	}

	var stored models.ActivityRecord
	_, err := t.Mutate(ctx, kind, func(records []models.ActivityRecord) ([]models.ActivityRecord, error) {
		out := mergeActivity(records, incoming, isUpdate)
		for _, r := range out {
			if r.ActivityID == incoming.ActivityID {
				stored = r
			}
		}
		return out, nil
	})
	return stored, err
}

// MarkAllSynced flips every record to SYNCED. Used after a bulk confirmation
// arrives through another channel than the per-record sync pass.
func (t *Store) MarkAllSynced(ctx context.Context, kind models.Kind) ([]models.ActivityRecord, error) {
	return t.Mutate(ctx, kind, func(records []models.ActivityRecord) ([]models.ActivityRecord, error) {
		for i := range records {
			records[i].SyncStatus = models.SyncSynced
			records[i].NewActivity = false
		}
		return records, nil
	})
}

// StoredActivities loads the persisted set, refreshes the mirror and returns
// a copy safe for the caller to hold.
func (t *Store) StoredActivities(ctx context.Context, kind models.Kind) []models.ActivityRecord {
	mu := t.lock(kind)
	mu.Lock()
	defer mu.Unlock()

	records := t.store.Load(ctx, kind)
	t.setMirror(kind, records)
	return copyRecords(records)
}

// Mirror returns the last known in-memory set without touching storage.
func (t *Store) Mirror(kind models.Kind) []models.ActivityRecord {
	t.mirrorMu.RLock()
	defer t.mirrorMu.RUnlock()
	return copyRecords(t.mirror[kind.StorageKey])
}

// Subscribe registers for tracking updates. The returned cancel func must be
// called to release the channel. Slow subscribers miss updates rather than
// block mutations.
func (t *Store) Subscribe() (<-chan models.TrackingUpdate, func()) {
	ch := make(chan models.TrackingUpdate, 16)

	t.subMu.Lock()
	t.subs[ch] = struct{}{}
	t.subMu.Unlock()

	cancel := func() {
		t.subMu.Lock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
		t.subMu.Unlock()
	}
	return ch, cancel
}

func (t *Store) setMirror(kind models.Kind, records []models.ActivityRecord) {
	t.mirrorMu.Lock()
	t.mirror[kind.StorageKey] = copyRecords(records)
	t.mirrorMu.Unlock()
}

func (t *Store) notify(kind models.Kind, records []models.ActivityRecord) {
	update := models.TrackingUpdate{
		Kind:    kind.Name,
		Pending: models.CountPending(records),
		Records: copyRecords(records),
	}

	t.subMu.Lock()
	defer t.subMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func mergeActivity(records []models.ActivityRecord, incoming models.ActivityRecord, isUpdate bool) []models.ActivityRecord {
	idx := -1
	for i, r := range records {
		if r.ActivityID == incoming.ActivityID {
			idx = i
			break
		}
	}

	if idx >= 0 && isUpdate {
		current := records[idx]
		current.SourceID = incoming.SourceID
		current.SourceType = incoming.SourceType
		current.StartTime = incoming.StartTime
		current.EndTime = incoming.EndTime
		current.Metric = incoming.Metric
		current.SyncStatus = models.SyncStale
		current.Segments = unionSegments(current.Segments, incoming.Segments)
		// new_activity stays whatever it was: an update alone neither makes a
		// record new again nor confirms it was ever sent.
		records[idx] = current
		return records
	}

	// New session, or a non-update carrying an id we already hold: drop the
	// stale copy and take the incoming record verbatim.
	out := make([]models.ActivityRecord, 0, len(records)+1)
	for _, r := range records {
		if r.ActivityID != incoming.ActivityID {
			out = append(out, r)
		}
	}
	return append(out, incoming)
}

// unionSegments keeps every segment appearing in either list exactly once,
// keyed by exact structural identity. Two segments covering the same range
// under different ids both survive; that is the contract, not an accident.
func unionSegments(existing, incoming []models.Segment) []models.Segment {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.Segment, 0, len(existing)+len(incoming))
	for _, s := range existing {
		key := s.Identity()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	for _, s := range incoming {
		key := s.Identity()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func copyRecords(records []models.ActivityRecord) []models.ActivityRecord {
	out := make([]models.ActivityRecord, len(records))
	copy(out, records)
	for i := range out {
		segments := make([]models.Segment, len(out[i].Segments))
		copy(segments, out[i].Segments)
		out[i].Segments = segments
	}
	return out
}
