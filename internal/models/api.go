package models

import (
	"github.com/google/uuid"
)

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WSMessage is the envelope pushed to websocket subscribers.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// TrackingUpdate is broadcast after every store mutation so the UI can render
// pending counts without polling.
type TrackingUpdate struct {
	Kind    string           `json:"kind"`
	Pending int              `json:"pending"`
	Records []ActivityRecord `json:"records"`
}

// SyncJob is one queued request to run a sync pass for a kind.
type SyncJob struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	ChapterID string    `json:"chapter_id"`
	SlideID   string    `json:"slide_id"`
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
