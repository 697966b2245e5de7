package models

import (
	"encoding/json"
)

type SyncStatus string

const (
	// SyncStale marks a record modified locally and not yet confirmed remotely.
	SyncStale SyncStatus = "STALE"
	// SyncSynced marks a record acknowledged by the remote tracking API.
	SyncSynced SyncStatus = "SYNCED"
)

// Segment is one contiguous span of attention: a watched stretch of video or
// a viewed document page. Page is zero for video segments.
type Segment struct {
	ID    string `json:"id"`
	Start int64  `json:"start_time_in_millis"`
	End   int64  `json:"end_time_in_millis"`
	Page  int    `json:"page,omitempty"`
}

// Identity returns the serialized form used to deduplicate segments.
// Two segments are the same only if every field matches exactly; identical
// time ranges with different ids are distinct on purpose.
func (s Segment) Identity() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ActivityRecord is one (content item, viewing session) pair. Metric is the
// cumulative consumption value: watched seconds for video, distinct pages
// read for documents.
//
// The struct tags are the generic dialect used on the local API and the
// websocket stream. Persisted blobs and sync payloads use kind-specific
// field names instead ("duration"/"timestamps" vs "total_pages_read"/
// "page_views"), handled by storage.EncodeRecords and the sync engine.
type ActivityRecord struct {
	ActivityID  string     `json:"activity_id"`
	SourceID    string     `json:"source_id"`
	SourceType  string     `json:"source_type"`
	StartTime   int64      `json:"start_time"` // epoch millis
	EndTime     int64      `json:"end_time"`   // epoch millis
	Metric      float64    `json:"metric"`
	Segments    []Segment  `json:"segments"`
	SyncStatus  SyncStatus `json:"sync_status"`
	NewActivity bool       `json:"new_activity"`
}

// Pending reports whether the record still needs to reach the remote API.
func (r ActivityRecord) Pending() bool {
	return r.SyncStatus != SyncSynced
}

// CountPending returns how many records in the set are not yet synced.
func CountPending(records []ActivityRecord) int {
	n := 0
	for _, r := range records {
		if r.Pending() {
			n++
		}
	}
	return n
}
