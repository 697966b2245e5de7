package models

// Kind describes one tracked content kind. The two kinds persist and transmit
// the same record shape under different field names ("duration"+"timestamps"
// for video, "total_pages_read"+"page_views" for documents), so everything
// name-dependent lives here and the engine stays generic.
type Kind struct {
	Name         string
	StorageKey   string
	MetricField  string
	SegmentField string
	PercentField string
	ItemsField   string
}

var (
	KindVideo = Kind{
		Name:         "video",
		StorageKey:   "video_tracking_data",
		MetricField:  "duration",
		SegmentField: "timestamps",
		PercentField: "percentage_watched",
		ItemsField:   "videos",
	}

	KindPDF = Kind{
		Name:         "pdf",
		StorageKey:   "pdf_tracking_data",
		MetricField:  "total_pages_read",
		SegmentField: "page_views",
		PercentField: "percentage_read",
		ItemsField:   "documents",
	}
)

// Kinds lists every tracked content kind, in sync order.
var Kinds = []Kind{KindVideo, KindPDF}

func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// ComputeMetric recomputes the cumulative consumption value from segments.
// This is authoritative over whatever value the record carries: watched
// seconds for video, count of distinct pages for documents.
func (k Kind) ComputeMetric(segments []Segment) float64 {
	if k.Name == KindPDF.Name {
		pages := make(map[int]struct{}, len(segments))
		for _, s := range segments {
			pages[s.Page] = struct{}{}
		}
		return float64(len(pages))
	}

	var millis int64
	for _, s := range segments {
		if s.End > s.Start {
			millis += s.End - s.Start
		}
	}
	return float64(millis) / 1000.0
}

// Percentage derives the consumption percentage transmitted to the remote
// API. Video: watched seconds over the wall-clock span of the session.
// Documents: distinct pages read over the furthest page reached.
func (k Kind) Percentage(r ActivityRecord) float64 {
	if k.Name == KindPDF.Name {
		maxPage := 0
		pages := make(map[int]struct{}, len(r.Segments))
		for _, s := range r.Segments {
			pages[s.Page] = struct{}{}
			if s.Page > maxPage {
				maxPage = s.Page
			}
		}
		if maxPage == 0 {
			return 0
		}
		return clampPercent(float64(len(pages)) / float64(maxPage) * 100)
	}

	spanSeconds := float64(r.EndTime-r.StartTime) / 1000.0
	if spanSeconds <= 0 {
		return 0
	}
	return clampPercent(k.ComputeMetric(r.Segments) / spanSeconds * 100)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
