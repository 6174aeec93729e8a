package monitor

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleHistogramChart renders the valid-view histogram of a run as an HTML
// bar chart using go-echarts. This is a debugging-only endpoint for eyeballing
// view starvation without pulling the JSON into a notebook.
// Query params:
//   - id (optional; defaults to the latest run)
func (ws *WebServer) handleHistogramChart(w http.ResponseWriter, r *http.Request) {
	run, histogram, err := ws.latestRunWithHistogram(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, "no run to chart: "+err.Error())
		return
	}

	keys := make([]int, 0, len(histogram))
	for key := range histogram {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	labels := make([]string, 0, len(keys))
	values := make([]opts.BarData, 0, len(keys))
	for _, key := range keys {
		labels = append(labels, fmt.Sprintf("%d views", key))
		values = append(values, opts.BarData{Value: histogram[key]})
	}

	unit := "pairs"
	if run.RateMode {
		unit = "rate"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Valid views per point-pair (%s)", unit),
			Subtitle: fmt.Sprintf("run=%s source=%s cameras=%d countable_pairs=%d", run.ID, run.Source, run.CameraCount, run.TotalPairs),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(unit, values)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := bar.Render(w); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to render chart: "+err.Error())
	}
}
