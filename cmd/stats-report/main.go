// Command stats-report prints recorded visibility-statistics runs from the
// database and can write a run's histogram as a PNG for offline inspection.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/danielrogel/xrmocap/internal/db"
	"github.com/danielrogel/xrmocap/internal/monitor"
)

var (
	dbFile = flag.String("db", "stats.db", "Path to the statistics database")
	runID  = flag.String("run", "", "Run id to report (default: latest run)")
	limit  = flag.Int("limit", 20, "Number of runs to list when no run is selected")
	pngOut = flag.String("png", "", "Write the selected run's histogram to this PNG file")
)

func main() {
	flag.Parse()

	database, err := db.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if *runID == "" && *pngOut == "" {
		if err := listRuns(database); err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		return
	}

	run, err := selectRun(database)
	if err != nil {
		log.Fatalf("failed to select run: %v", err)
	}
	histogram, err := database.RunHistogram(run.ID)
	if err != nil {
		log.Fatalf("failed to load histogram: %v", err)
	}

	printRun(run, histogram)

	if *pngOut != "" {
		f, err := os.Create(*pngOut)
		if err != nil {
			log.Fatalf("failed to create %s: %v", *pngOut, err)
		}
		defer f.Close()
		title := fmt.Sprintf("Valid views per point-pair (%s)", run.Source)
		if err := monitor.RenderHistogramPNG(f, title, histogram, run.RateMode); err != nil {
			log.Fatalf("failed to render histogram: %v", err)
		}
		log.Printf("wrote %s", *pngOut)
	}
}

func selectRun(database *db.DB) (db.StatsRun, error) {
	if *runID != "" {
		return database.GetRun(*runID)
	}
	return database.LatestRun()
}

func listRuns(database *db.DB) error {
	runs, err := database.ListRuns(*limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSource\tCameras\tPairs\tCreated")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Source, r.CameraCount, r.TotalPairs, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func printRun(run db.StatsRun, histogram map[int]float64) {
	fmt.Printf("run %s\nsource: %s\ncameras: %d\nconcerned views: %d\ncountable pairs: %d\n",
		run.ID, run.Source, run.CameraCount, run.ConcernedViews, run.TotalPairs)

	keys := make([]int, 0, len(histogram))
	for key := range histogram {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Valid Views\tPairs")
	for _, key := range keys {
		fmt.Fprintf(tw, "%d\t%g\n", key, histogram[key])
	}
	tw.Flush()
}
