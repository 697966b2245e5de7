package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"studytrack-agent/internal/identity"
	"studytrack-agent/internal/models"
	"studytrack-agent/internal/syncer"
	"studytrack-agent/internal/tracker"
)

// SyncQueue hands sync requests to the redis worker pool. Nil when the agent
// runs without redis; syncs then execute inline.
type SyncQueue interface {
	Enqueue(ctx context.Context, job models.SyncJob) error
}

type ActivityHandler struct {
	tracker        *tracker.Store
	engine         *syncer.Engine
	queue          SyncQueue
	defaultChapter string
	defaultSlide   string
}

func NewActivityHandler(t *tracker.Store, engine *syncer.Engine, queue SyncQueue, defaultChapter, defaultSlide string) *ActivityHandler {
	return &ActivityHandler{
		tracker:        t,
		engine:         engine,
		queue:          queue,
		defaultChapter: defaultChapter,
		defaultSlide:   defaultSlide,
	}
}

// Add records one playback/reading observation.
func (h *ActivityHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string                `json:"kind"`
		IsUpdate bool                  `json:"is_update"`
		Activity models.ActivityRecord `json:"activity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	kind, ok := models.KindByName(req.Kind)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "kind must be video or pdf", r))
		return
	}
	if req.Activity.SourceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "activity.source_id is required", r))
		return
	}

	stored, err := h.tracker.AddActivity(r.Context(), kind, req.Activity, req.IsUpdate)
	if err != nil {
		log.Printf("handlers: add %s activity failed: %v", kind.Name, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record activity", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"activity": stored,
	})
}

// Sync runs a sync pass now. Omitting kind syncs every tracked kind.
func (h *ActivityHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind      string `json:"kind"`
		ChapterID string `json:"chapter_id"`
		SlideID   string `json:"slide_id"`
	}
	if r.Body != nil {
		// An empty body means "sync everything with the defaults".
		json.NewDecoder(r.Body).Decode(&req)
	}

	chapterID := req.ChapterID
	if chapterID == "" {
		chapterID = h.defaultChapter
	}
	slideID := req.SlideID
	if slideID == "" {
		slideID = h.defaultSlide
	}

	kinds := models.Kinds
	if req.Kind != "" {
		kind, ok := models.KindByName(req.Kind)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "kind must be video or pdf", r))
			return
		}
		kinds = []models.Kind{kind}
	}

	// With redis configured the pass runs on the worker pool, serialized
	// across processes by the per-kind lock.
	if h.queue != nil {
		for _, kind := range kinds {
			job := models.SyncJob{Kind: kind.Name, ChapterID: chapterID, SlideID: slideID}
			if err := h.queue.Enqueue(r.Context(), job); err != nil {
				log.Printf("handlers: enqueue sync for %s failed: %v", kind.Name, err)
				writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue sync", r))
				return
			}
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"queued": len(kinds),
		})
		return
	}

	var (
		result models.SyncResult
		err    error
	)
	if len(kinds) == 1 {
		result, err = h.engine.SyncPending(r.Context(), kinds[0], chapterID, slideID)
	} else {
		result, err = h.engine.SyncAll(r.Context(), chapterID, slideID)
	}

	if errors.Is(err, identity.ErrMissingIdentity) {
		writeJSON(w, http.StatusUnauthorized, errorResp("NO_IDENTITY", "No user identity captured yet; send a bearer token first", r))
		return
	}
	if err != nil {
		log.Printf("handlers: sync failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Sync pass failed", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
	})
}

// MarkSynced flips every stored record of a kind to SYNCED after a bulk
// confirmation arrived through another channel.
func (h *ActivityHandler) MarkSynced(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	kind, ok := models.KindByName(req.Kind)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "kind must be video or pdf", r))
		return
	}

	records, err := h.tracker.MarkAllSynced(r.Context(), kind)
	if err != nil {
		log.Printf("handlers: mark-synced %s failed: %v", kind.Name, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to mark activities synced", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": records,
	})
}

// List returns the stored records for a kind.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.KindByName(r.URL.Query().Get("kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "kind must be video or pdf", r))
		return
	}

	records := h.tracker.StoredActivities(r.Context(), kind)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":    records,
		"pending": models.CountPending(records),
	})
}
