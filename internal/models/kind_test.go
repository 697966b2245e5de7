package models

import (
	"testing"
)

func TestKindByName(t *testing.T) {
	tests := []struct {
		name  string
		found bool
	}{
		{"video", true},
		{"pdf", true},
		{"audio", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := KindByName(tc.name)
			if ok != tc.found {
				t.Fatalf("Expected found=%v, got %v", tc.found, ok)
			}
			if ok && kind.Name != tc.name {
				t.Errorf("Expected kind %q, got %q", tc.name, kind.Name)
			}
		})
	}
}

func TestComputeMetric(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		segments []Segment
		expected float64
	}{
		{
			"video sums watched millis",
			KindVideo,
			[]Segment{{ID: "s1", Start: 0, End: 10000}, {ID: "s2", Start: 20000, End: 25500}},
			15.5,
		},
		{
			"video ignores inverted segments",
			KindVideo,
			[]Segment{{ID: "s1", Start: 5000, End: 1000}},
			0,
		},
		{
			"video empty",
			KindVideo,
			nil,
			0,
		},
		{
			"pdf counts distinct pages",
			KindPDF,
			[]Segment{{ID: "s1", Page: 1}, {ID: "s2", Page: 2}, {ID: "s3", Page: 1}},
			2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.kind.ComputeMetric(tc.segments)
			if got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		record   ActivityRecord
		expected float64
	}{
		{
			"video half watched",
			KindVideo,
			ActivityRecord{
				StartTime: 0,
				EndTime:   20000,
				Segments:  []Segment{{ID: "s1", Start: 0, End: 10000}},
			},
			50,
		},
		{
			"video clamps at 100",
			KindVideo,
			ActivityRecord{
				StartTime: 0,
				EndTime:   1000,
				Segments:  []Segment{{ID: "s1", Start: 0, End: 10000}},
			},
			100,
		},
		{
			"video zero span",
			KindVideo,
			ActivityRecord{StartTime: 5, EndTime: 5},
			0,
		},
		{
			"pdf pages over furthest page",
			KindPDF,
			ActivityRecord{
				Segments: []Segment{{ID: "s1", Page: 1}, {ID: "s2", Page: 4}},
			},
			50,
		},
		{
			"pdf no pages",
			KindPDF,
			ActivityRecord{},
			0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.kind.Percentage(tc.record)
			if got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSegmentIdentity(t *testing.T) {
	a := Segment{ID: "s1", Start: 0, End: 1000}
	b := Segment{ID: "s1", Start: 0, End: 1000}
	c := Segment{ID: "s2", Start: 0, End: 1000}

	if a.Identity() != b.Identity() {
		t.Error("Identical segments must share identity")
	}
	if a.Identity() == c.Identity() {
		t.Error("Differing ids must produce distinct identities")
	}
}
