package triangulate

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/danielrogel/xrmocap/internal/monitoring"
)

// DefaultConcernedViews is the default histogram ceiling: points seen by
// fewer than this many views are the ones worth counting.
const DefaultConcernedViews = 3

// ValidViewsStats counts, for every point-pair not hard excluded, how many
// views observe it validly, and reports a histogram over the critical range
// plus a rendered two-column table.
//
// mask must be the canonical rank-3 [n_view, n_point, 1] layout; callers with
// per-frame or per-person axes flatten first via Tensor.FlattenPairs. The
// histogram holds keys 0..concernedNView-1. A pair with a hard-exclusion
// marker in any view is removed from the denominator entirely. A pair whose
// valid-view count reaches concernedNView stays in the denominator but lands
// in no bucket: the histogram measures how many points have dangerously few
// views, and its normalization base must still be all countable pairs.
//
// With returnRate true, buckets are divided by the number of countable pairs;
// when that number is zero the division is skipped and the zero-valued raw
// counts are returned as-is.
func ValidViewsStats(mask *Tensor, concernedNView int, returnRate bool) (map[int]float64, string, error) {
	if mask.Rank() != 3 || mask.Dim(2) != 1 {
		monitoring.Logf("stats mask must be [n_view, n_point, 1], got shape %v", mask.Shape())
		return nil, "", fmt.Errorf("%w: stats mask must be [n_view, n_point, 1], got shape %v",
			ErrMaskShapeMismatch, mask.Shape())
	}

	stats := make(map[int]float64, concernedNView)
	for n := 0; n < concernedNView; n++ {
		stats[n] = 0.0
	}

	nView := mask.Dim(0)
	nPoint := mask.Dim(1)
	data := mask.Data()

	totalPairs := nPoint
	for p := 0; p < nPoint; p++ {
		excluded := false
		nValid := 0
		for v := 0; v < nView; v++ {
			e := data[v*nPoint+p]
			if IsHardExcluded(e) {
				excluded = true
				break
			}
			if e == MaskValid {
				nValid++
			}
		}
		if excluded {
			totalPairs--
			continue
		}
		if _, ok := stats[nValid]; ok {
			stats[nValid] += 1.0
		}
	}

	if returnRate && totalPairs > 0 {
		for key := range stats {
			stats[key] /= float64(totalPairs)
		}
	}
	return stats, statsTable(stats), nil
}

// statsTable renders the histogram as a two-column text table, one row per
// bucket in ascending view-count order.
func statsTable(stats map[int]float64) string {
	keys := make([]int, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	var sb strings.Builder
	sb.WriteByte('\n')
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Valid Views\tPairs")
	for _, key := range keys {
		fmt.Fprintf(tw, "%d\t%g\n", key, stats[key])
	}
	tw.Flush()
	return sb.String()
}
