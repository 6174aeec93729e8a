package triangulate

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danielrogel/xrmocap/internal/monitoring"
)

func TestValidViewsStatsRawCountsSumToCountablePairs(t *testing.T) {
	t.Parallel()

	// [3, 5, 1] all valid, no exclusions: every point has 3 valid views,
	// which reaches concernedNView and lands in no bucket. Bucket sum plus
	// the fully-seen points must account for all 5 pairs.
	mask := Ones(3, 5, 1)
	stats, _, err := ValidViewsStats(mask, 3, false)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	sum := 0.0
	for _, v := range stats {
		sum += v
	}
	if sum != 0 {
		t.Errorf("bucket sum = %g, want 0 (all points fully seen)", sum)
	}
	if len(stats) != 3 {
		t.Errorf("bucket count = %d, want 3", len(stats))
	}
	for key := 0; key < 3; key++ {
		if _, ok := stats[key]; !ok {
			t.Errorf("missing bucket %d", key)
		}
	}
}

func TestValidViewsStatsConcreteScenario(t *testing.T) {
	t.Parallel()

	// 3 cameras, 4 points, all views valid except point 2 which is soft
	// invalid in view 1. Point 2 has 2 valid views -> bucket 2; the other
	// three points have 3 valid views and stay out of every bucket.
	mask := Ones(3, 4, 1)
	mask.Set(MaskSoftInvalid, 1, 2, 0)

	stats, table, err := ValidViewsStats(mask, 3, false)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	want := map[int]float64{0: 0, 1: 0, 2: 1}
	for key, w := range want {
		if stats[key] != w {
			t.Errorf("bucket %d = %g, want %g", key, stats[key], w)
		}
	}
	if !strings.Contains(table, "Valid Views") || !strings.Contains(table, "Pairs") {
		t.Errorf("table missing headers:\n%s", table)
	}
}

func TestValidViewsStatsHardExclusionShrinksDenominator(t *testing.T) {
	t.Parallel()

	// 3 views, 5 points. Point 0 carries a hard exclusion in one view, so
	// only 4 pairs are countable. Points 1,2 have one soft-invalid view
	// each (2 valid -> bucket 2); points 3,4 are fully seen (no bucket).
	mask := Ones(3, 5, 1)
	mask.Set(HardExcluded(), 1, 0, 0)
	mask.Set(MaskSoftInvalid, 0, 1, 0)
	mask.Set(MaskSoftInvalid, 2, 2, 0)

	stats, _, err := ValidViewsStats(mask, 3, true)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	if got := stats[2]; got != 2.0/4.0 {
		t.Errorf("bucket 2 rate = %g, want 0.5", got)
	}
	sum := 0.0
	for _, v := range stats {
		sum += v
	}
	if sum > 1.0 {
		t.Errorf("rate sum = %g, want <= 1", sum)
	}
}

func TestValidViewsStatsRateMode(t *testing.T) {
	t.Parallel()

	// 2 views, 4 points: point 0 fully valid (bucket ceiling 2 -> no
	// bucket), point 1 one valid view, points 2 and 3 zero valid views.
	mask, err := NewTensor([]int{2, 4, 1}, []float64{
		1, 1, 0, 0,
		1, 0, 0, 0,
	})
	if err != nil {
		t.Fatal(err)
	}

	stats, _, err := ValidViewsStats(mask, 2, true)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	if stats[0] != 0.5 {
		t.Errorf("bucket 0 = %g, want 0.5", stats[0])
	}
	if stats[1] != 0.25 {
		t.Errorf("bucket 1 = %g, want 0.25", stats[1])
	}
}

func TestValidViewsStatsAllPairsExcluded(t *testing.T) {
	t.Parallel()

	// Every pair hard excluded: denominator reaches zero and rate mode
	// degrades to the raw zero counts instead of dividing.
	mask := Ones(2, 3, 1)
	for p := 0; p < 3; p++ {
		mask.Set(HardExcluded(), 0, p, 0)
	}
	stats, _, err := ValidViewsStats(mask, 3, true)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	for key, v := range stats {
		if v != 0 || math.IsNaN(v) {
			t.Errorf("bucket %d = %g, want 0", key, v)
		}
	}
}

func TestValidViewsStatsOnlyExactOnesCount(t *testing.T) {
	t.Parallel()

	// A mask entry of 0.5 is neither valid nor hard excluded; it must not
	// count as a valid view.
	mask, err := NewTensor([]int{2, 1, 1}, []float64{1, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	stats, _, err := ValidViewsStats(mask, 3, false)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	if stats[1] != 1 {
		t.Errorf("bucket 1 = %g, want 1", stats[1])
	}
}

func TestValidViewsStatsRejectsNonCanonicalShape(t *testing.T) {
	_, restore := monitoring.Capture()
	defer restore()

	tests := []struct {
		name  string
		shape []int
	}{
		{"rank 4", []int{2, 3, 4, 1}},
		{"rank 2", []int{2, 3}},
		{"trailing width 2", []int{2, 3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidViewsStats(Ones(tt.shape...), 3, true)
			if !errors.Is(err, ErrMaskShapeMismatch) {
				t.Errorf("shape %v: error = %v, want %v", tt.shape, err, ErrMaskShapeMismatch)
			}
		})
	}
}

func TestValidViewsStatsTableRows(t *testing.T) {
	t.Parallel()

	mask := Ones(3, 4, 1)
	mask.Set(MaskSoftInvalid, 1, 2, 0)
	_, table, err := ValidViewsStats(mask, 3, false)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(table), "\n")
	// Header plus one row per bucket.
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want 4:\n%s", len(lines), table)
	}
	if !strings.HasPrefix(lines[3], "2") {
		t.Errorf("last row %q should report bucket 2", lines[3])
	}
}

func TestValidViewsStatsAfterFlatten(t *testing.T) {
	t.Parallel()

	// Higher-rank masks go through FlattenPairs before the stats call.
	mask := Ones(2, 3, 4, 1)
	flat, err := mask.FlattenPairs()
	if err != nil {
		t.Fatal(err)
	}
	stats, _, err := ValidViewsStats(flat, 2, false)
	if err != nil {
		t.Fatalf("ValidViewsStats failed: %v", err)
	}
	// All 12 pairs fully seen by 2 views; ceiling 2 keeps them out of the
	// buckets.
	if stats[0] != 0 || stats[1] != 0 {
		t.Errorf("buckets = %v, want all zero", stats)
	}
}
