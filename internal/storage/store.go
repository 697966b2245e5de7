package storage

import (
	"context"
	"log"

	"studytrack-agent/internal/models"
)

// ActivityStore is the typed layer over a Backend. It fails open: a missing
// or corrupt blob loads as an empty set and write failures are logged and
// swallowed, so the accumulator can always proceed and the next mutation
// re-attempts persistence with a fresh snapshot.
type ActivityStore struct {
	backend Backend
}

func NewActivityStore(backend Backend) *ActivityStore {
	return &ActivityStore{backend: backend}
}

// Load returns the persisted record set for the kind. Never fails; storage
// or parse errors degrade to an empty set.
func (s *ActivityStore) Load(ctx context.Context, kind models.Kind) []models.ActivityRecord {
	blob, ok, err := s.backend.Load(ctx, kind.StorageKey)
	if err != nil {
		log.Printf("storage: load %s failed, starting empty: %v", kind.StorageKey, err)
		return []models.ActivityRecord{}
	}
	if !ok {
		return []models.ActivityRecord{}
	}

	records, err := DecodeRecords(kind, blob)
	if err != nil {
		log.Printf("storage: %s is not parseable, starting empty: %v", kind.StorageKey, err)
		return []models.ActivityRecord{}
	}
	return records
}

// Save overwrites the full persisted set for the kind. Failures are logged
// and swallowed; the in-memory mirror stays authoritative until the next
// successful write.
func (s *ActivityStore) Save(ctx context.Context, kind models.Kind, records []models.ActivityRecord) {
	blob, err := EncodeRecords(kind, records)
	if err != nil {
		log.Printf("storage: encode %s failed, keeping previous blob: %v", kind.StorageKey, err)
		return
	}
	if err := s.backend.Save(ctx, kind.StorageKey, blob); err != nil {
		log.Printf("storage: save %s failed: %v", kind.StorageKey, err)
	}
}
