package monitor

import (
	"fmt"
	"image/color"
	"io"
	"net/http"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderHistogramPNG draws a valid-view histogram as a PNG bar chart. Used by
// the monitor's debug endpoint and the offline report tool.
func RenderHistogramPNG(w io.Writer, title string, histogram map[int]float64, rateMode bool) error {
	keys := make([]int, 0, len(histogram))
	for key := range histogram {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	values := make(plotter.Values, 0, len(keys))
	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		values = append(values, histogram[key])
		labels = append(labels, fmt.Sprintf("%d", key))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Valid views"
	if rateMode {
		p.Y.Label.Text = "Rate of countable pairs"
	} else {
		p.Y.Label.Text = "Pairs"
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	p.Add(bars)
	p.NominalX(labels...)

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// handleHistogramPNG serves the histogram of a run as a PNG image.
// Query params:
//   - id (optional; defaults to the latest run)
func (ws *WebServer) handleHistogramPNG(w http.ResponseWriter, r *http.Request) {
	run, histogram, err := ws.latestRunWithHistogram(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, "no run to plot: "+err.Error())
		return
	}
	title := fmt.Sprintf("Valid views per point-pair (%s)", run.Source)
	w.Header().Set("Content-Type", "image/png")
	if err := RenderHistogramPNG(w, title, histogram, run.RateMode); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to render plot: "+err.Error())
	}
}
