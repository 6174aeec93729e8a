// Command xrmocap evaluates multi-view 2D keypoint detections: it validates
// and masks the observations, reports per-point visible-view statistics,
// optionally triangulates 3D keypoints against a calibrated rig, records the
// run in sqlite, and can serve an HTTP monitor over the recorded runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danielrogel/xrmocap/internal/camera"
	"github.com/danielrogel/xrmocap/internal/dataset"
	"github.com/danielrogel/xrmocap/internal/db"
	"github.com/danielrogel/xrmocap/internal/keypoints"
	"github.com/danielrogel/xrmocap/internal/monitor"
	"github.com/danielrogel/xrmocap/internal/reconstruct"
	"github.com/danielrogel/xrmocap/internal/triangulate"
)

var (
	detectionsFile = flag.String("detections", "", "Path to a multi-view detections JSON file")
	rigFile        = flag.String("rig", "", "Path to a camera rig JSON file (enables triangulation)")
	dbFile         = flag.String("db", "stats.db", "Path to the statistics database")
	listen         = flag.String("listen", ":8080", "Monitor listen address")
	serve          = flag.Bool("serve", false, "Serve the HTTP monitor after processing")
	concernedViews = flag.Int("concerned-views", triangulate.DefaultConcernedViews, "Histogram ceiling: count points seen by fewer than this many views")
	rawCounts      = flag.Bool("counts", false, "Report raw pair counts instead of rates")
	confThreshold  = flag.Float64("conf-threshold", 0.5, "Detections below this confidence are soft-invalidated")
	excludeKps     = flag.String("exclude-keypoints", "", "Comma-separated keypoint names to hard-exclude (e.g. left_ear,right_ear)")
)

func main() {
	flag.Parse()

	database, err := db.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if *detectionsFile != "" {
		if err := processDetections(database); err != nil {
			log.Fatalf("failed to process detections: %v", err)
		}
	}

	if *serve {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ws := monitor.NewWebServer(*listen, database)
		if err := ws.Start(ctx); err != nil {
			log.Fatalf("monitor server error: %v", err)
		}
		return
	}

	if *detectionsFile == "" {
		log.Fatal("nothing to do: pass -detections and/or -serve")
	}
}

// processDetections runs the full evaluation for one detections file:
// validate, mask, report statistics, persist, and triangulate when a rig is
// supplied.
func processDetections(database *db.DB) error {
	d, err := dataset.Load(*detectionsFile)
	if err != nil {
		return err
	}
	log.Printf("loaded %s: %d views, %d persons, %d keypoints",
		d.Source, d.CameraNumber(), d.PersonCount(), d.KeypointCount())

	points, err := d.PointsTensor()
	if err != nil {
		return err
	}
	confMask, err := d.ConfidenceMask(*confThreshold)
	if err != nil {
		return err
	}

	points, mask, err := triangulate.PrepareInput(d.CameraNumber(), points, confMask)
	if err != nil {
		return err
	}

	// Fold in annotation-level keypoint exclusions when requested.
	if *excludeKps != "" {
		if d.KeypointCount() != keypoints.Count {
			return fmt.Errorf("-exclude-keypoints requires the %d-keypoint convention, file has %d",
				keypoints.Count, d.KeypointCount())
		}
		validity, err := keypoints.ValidityVector(splitNames(*excludeKps)...)
		if err != nil {
			return err
		}
		kpMask, err := triangulate.ParseKeypointsMask(points, validity)
		if err != nil {
			return err
		}
		mask, err = triangulate.MergeMasks(mask, kpMask)
		if err != nil {
			return err
		}
	}

	flatMask, err := mask.FlattenPairs()
	if err != nil {
		return err
	}
	stats, table, err := triangulate.ValidViewsStats(flatMask, *concernedViews, !*rawCounts)
	if err != nil {
		return err
	}
	log.Print(table)

	totalPairs := countablePairs(flatMask)
	id, err := database.RecordRun(db.StatsRun{
		Source:         d.Source,
		CameraCount:    d.CameraNumber(),
		ConcernedViews: *concernedViews,
		TotalPairs:     totalPairs,
		RateMode:       !*rawCounts,
	}, stats)
	if err != nil {
		return err
	}
	log.Printf("recorded run %s (%d countable pairs)", id, totalPairs)

	if *rigFile != "" {
		if err := triangulateDetections(d, points, mask); err != nil {
			return err
		}
	}
	return nil
}

// triangulateDetections solves 3D keypoints for every person in the capture
// and logs a per-person summary.
func triangulateDetections(d *dataset.Detections, points, mask *triangulate.Tensor) error {
	cams, err := camera.LoadRig(*rigFile)
	if err != nil {
		return err
	}
	if len(cams) != d.CameraNumber() {
		return fmt.Errorf("rig has %d cameras, detections carry %d views", len(cams), d.CameraNumber())
	}
	tr, err := reconstruct.NewTriangulator(cams)
	if err != nil {
		return err
	}
	solved, err := tr.TriangulateAll(points, mask)
	if err != nil {
		return err
	}

	nKeypoint := d.KeypointCount()
	for person := 0; person < d.PersonCount(); person++ {
		good := 0
		for kp := 0; kp < nKeypoint; kp++ {
			if solved[person*nKeypoint+kp].Valid {
				good++
			}
		}
		log.Printf("person %d: reconstructed %d/%d keypoints", person, good, nKeypoint)
	}
	return nil
}

// countablePairs is the statistics denominator: point-pairs without a
// hard-exclusion marker in any view.
func countablePairs(flatMask *triangulate.Tensor) int {
	nView, nPoint := flatMask.Dim(0), flatMask.Dim(1)
	total := nPoint
	for p := 0; p < nPoint; p++ {
		for v := 0; v < nView; v++ {
			if triangulate.IsHardExcluded(flatMask.At(v, p, 0)) {
				total--
				break
			}
		}
	}
	return total
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
