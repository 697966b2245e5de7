package storage

import (
	"encoding/json"
	"fmt"

	"studytrack-agent/internal/models"
)

// The persisted blob is {"data":[...]} with kind-specific field names:
// video records carry "duration" and "timestamps", document records carry
// "total_pages_read" and "page_views". Encoding goes through a map so the
// variant keys can be injected next to the fixed ones; map marshalling sorts
// keys, which keeps re-encoding a decoded blob byte-stable.

type recordHeader struct {
	ActivityID  string            `json:"activity_id"`
	SourceID    string            `json:"source_id"`
	SourceType  string            `json:"source_type"`
	StartTime   int64             `json:"start_time"`
	EndTime     int64             `json:"end_time"`
	SyncStatus  models.SyncStatus `json:"sync_status"`
	NewActivity bool              `json:"new_activity"`
}

// EncodeRecords serializes the full record set for one kind.
func EncodeRecords(kind models.Kind, records []models.ActivityRecord) ([]byte, error) {
	encoded := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		segments := r.Segments
		if segments == nil {
			segments = []models.Segment{}
		}
		encoded = append(encoded, map[string]interface{}{
			"activity_id":     r.ActivityID,
			"source_id":       r.SourceID,
			"source_type":     r.SourceType,
			"start_time":      r.StartTime,
			"end_time":        r.EndTime,
			"sync_status":     r.SyncStatus,
			"new_activity":    r.NewActivity,
			kind.MetricField:  r.Metric,
			kind.SegmentField: segments,
		})
	}

	blob, err := json.Marshal(map[string]interface{}{"data": encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s records: %w", kind.Name, err)
	}
	return blob, nil
}

// DecodeRecords parses a persisted blob back into records. A nil or empty
// blob decodes to an empty set; malformed JSON is an error the caller is
// expected to degrade on.
func DecodeRecords(kind models.Kind, blob []byte) ([]models.ActivityRecord, error) {
	if len(blob) == 0 {
		return []models.ActivityRecord{}, nil
	}

	var wrapper struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(blob, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode %s blob: %w", kind.Name, err)
	}

	records := make([]models.ActivityRecord, 0, len(wrapper.Data))
	for i, raw := range wrapper.Data {
		var header recordHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %d: %w", kind.Name, i, err)
		}

		var variant map[string]json.RawMessage
		if err := json.Unmarshal(raw, &variant); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %d: %w", kind.Name, i, err)
		}

		rec := models.ActivityRecord{
			ActivityID:  header.ActivityID,
			SourceID:    header.SourceID,
			SourceType:  header.SourceType,
			StartTime:   header.StartTime,
			EndTime:     header.EndTime,
			SyncStatus:  header.SyncStatus,
			NewActivity: header.NewActivity,
			Segments:    []models.Segment{},
		}

		if raw, ok := variant[kind.MetricField]; ok {
			if err := json.Unmarshal(raw, &rec.Metric); err != nil {
				return nil, fmt.Errorf("failed to decode %s of %s record %d: %w", kind.MetricField, kind.Name, i, err)
			}
		}
		if raw, ok := variant[kind.SegmentField]; ok {
			if err := json.Unmarshal(raw, &rec.Segments); err != nil {
				return nil, fmt.Errorf("failed to decode %s of %s record %d: %w", kind.SegmentField, kind.Name, i, err)
			}
		}

		records = append(records, rec)
	}
	return records, nil
}
