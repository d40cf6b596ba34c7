package config

import (
	"testing"
	"time"
)

func TestSortOccurrences(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	occ := []Occurrence{
		{Timestamp: base.Add(3 * time.Second), Message: "c"},
		{Timestamp: base.Add(1 * time.Second), Message: "a"},
		{Timestamp: base.Add(3 * time.Second), Message: "d"},
		{Timestamp: base.Add(2 * time.Second), Message: "b"},
	}

	SortOccurrences(occ)

	want := []string{"a", "b", "c", "d"}
	for i, o := range occ {
		if o.Message != want[i] {
			t.Errorf("occ[%d] = %q, want %q", i, o.Message, want[i])
		}
	}
}

func TestDefaultTimestampFormats(t *testing.T) {
	inputs := []string{"Jan  1 00:00:01", "Jan 1 00:00:01", "Jan 01 00:00:01"}
	for _, in := range inputs {
		parsed := false
		for _, layout := range DefaultTimestampFormats {
			if _, err := time.Parse(layout, in); err == nil {
				parsed = true
				break
			}
		}
		if !parsed {
			t.Errorf("no default layout parses %q", in)
		}
	}
}
