package syncer

import (
	"context"
	"fmt"
	"log"
	"time"

	"studytrack-agent/internal/identity"
	"studytrack-agent/internal/models"
	"studytrack-agent/internal/tracker"
)

// Pusher transmits one record payload to the remote tracking API.
type Pusher interface {
	PushActivity(ctx context.Context, kind models.Kind, chapterID, token string, payload map[string]interface{}) error
}

// Engine pushes pending records to the remote API and reconciles sync state
// on response. Records fail independently: one bad push never blocks the
// rest of the pass, and partial progress is persisted.
type Engine struct {
	tracker       *tracker.Store
	pusher        Pusher
	identity      identity.Provider
	recordTimeout time.Duration
}

func NewEngine(t *tracker.Store, pusher Pusher, provider identity.Provider, recordTimeout time.Duration) *Engine {
	if recordTimeout <= 0 {
		recordTimeout = 15 * time.Second
	}
	return &Engine{
		tracker:       t,
		pusher:        pusher,
		identity:      provider,
		recordTimeout: recordTimeout,
	}
}

// SyncPending runs one sync pass for the kind, in insertion order.
//
// A missing identity aborts the whole pass before anything is read. Records
// without segments are skipped and stay pending. A successful push flips the
// record to SYNCED and clears new_activity; a failed push leaves the record
// untouched for the next pass.
func (e *Engine) SyncPending(ctx context.Context, kind models.Kind, chapterID, slideID string) (models.SyncResult, error) {
	token, err := e.identity.Token(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("sync %s aborted: %w", kind.Name, err)
	}
	userID, err := e.identity.UserID(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("sync %s aborted: %w", kind.Name, err)
	}

	var result models.SyncResult
	_, err = e.tracker.Mutate(ctx, kind, func(records []models.ActivityRecord) ([]models.ActivityRecord, error) {
		for i := range records {
			if !records[i].Pending() {
				continue
			}
			if len(records[i].Segments) == 0 {
				result.Skipped++
				continue
			}

			// Recomputed from segments immediately before transmission;
			// authoritative over whatever the record accumulated.
			metric := kind.ComputeMetric(records[i].Segments)
			payload := buildPayload(kind, records[i], userID, slideID, metric)

			pushCtx, cancel := context.WithTimeout(ctx, e.recordTimeout)
			pushErr := e.pusher.PushActivity(pushCtx, kind, chapterID, token, payload)
			cancel()

			if pushErr != nil {
				log.Printf("syncer: push %s activity %s failed, will retry: %v", kind.Name, records[i].ActivityID, pushErr)
				result.Failed++
				continue
			}

			records[i].Metric = metric
			records[i].SyncStatus = models.SyncSynced
			records[i].NewActivity = false
			result.Synced++
		}
		return records, nil
	})
	if err != nil {
		return result, err
	}

	if result.Synced+result.Failed+result.Skipped > 0 {
		log.Printf("syncer: %s pass done: %d synced, %d failed, %d skipped", kind.Name, result.Synced, result.Failed, result.Skipped)
	}
	return result, nil
}

// SyncAll runs one pass per kind and returns the combined tally. Per-kind
// precondition failures abort everything, since identity is shared.
func (e *Engine) SyncAll(ctx context.Context, chapterID, slideID string) (models.SyncResult, error) {
	var total models.SyncResult
	for _, kind := range models.Kinds {
		result, err := e.SyncPending(ctx, kind, chapterID, slideID)
		total.Synced += result.Synced
		total.Failed += result.Failed
		total.Skipped += result.Skipped
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func buildPayload(kind models.Kind, rec models.ActivityRecord, userID, slideID string, metric float64) map[string]interface{} {
	percentage := kind.Percentage(rec)
	return map[string]interface{}{
		"id":                   rec.ActivityID,
		"source_id":            rec.SourceID,
		"source_type":          rec.SourceType,
		"user_id":              userID,
		"slide_id":             slideID,
		"start_time_in_millis": rec.StartTime,
		"end_time_in_millis":   rec.EndTime,
		kind.MetricField:       metric,
		kind.PercentField:      percentage,
		kind.ItemsField:        rec.Segments,
		"new_activity":         rec.NewActivity,
		"concentration_score":  percentage,
	}
}
