package airq

import (
	"testing"
	"time"
)

func TestGuardShouldWrite(t *testing.T) {
	guard := NewGuard(5 * time.Minute)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	last := MetricSnapshot{Index: 50, Timestamp: base}

	cases := []struct {
		name      string
		candidate MetricSnapshot
		want      bool
	}{
		{
			name:      "unchanged index inside window is skipped",
			candidate: MetricSnapshot{Index: 50, Timestamp: base.Add(2 * time.Minute)},
			want:      false,
		},
		{
			name:      "changed index inside window is written",
			candidate: MetricSnapshot{Index: 51, Timestamp: base.Add(2 * time.Minute)},
			want:      true,
		},
		{
			name:      "unchanged index outside window is written",
			candidate: MetricSnapshot{Index: 50, Timestamp: base.Add(10 * time.Minute)},
			want:      true,
		},
	}

	for _, tc := range cases {
		if got := guard.ShouldWrite(tc.candidate, last, true); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestGuardFirstWriteAlwaysAllowed(t *testing.T) {
	guard := NewGuard(0) // falls back to the default window

	candidate := MetricSnapshot{Index: 50, Timestamp: time.Now().UTC()}
	if !guard.ShouldWrite(candidate, MetricSnapshot{}, false) {
		t.Fatalf("expected first write for a city to be allowed")
	}
}
