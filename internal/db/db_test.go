package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.MigrateUp(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	if err := database.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("migration state is dirty")
	}
	if version == 0 {
		t.Error("expected a non-zero migration version")
	}
}

func TestRecordAndFetchRun(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	histogram := map[int]float64{0: 0, 1: 0.25, 2: 0.5}
	run := StatsRun{
		Source:         "shelf-seq1",
		CameraCount:    5,
		ConcernedViews: 3,
		TotalPairs:     68,
		RateMode:       true,
	}

	id, err := database.RecordRun(run, histogram)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated run id")
	}

	got, err := database.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Source != "shelf-seq1" || got.CameraCount != 5 || got.ConcernedViews != 3 ||
		got.TotalPairs != 68 || !got.RateMode {
		t.Errorf("GetRun = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected a populated created_at")
	}

	gotHist, err := database.RunHistogram(id)
	if err != nil {
		t.Fatalf("RunHistogram failed: %v", err)
	}
	if diff := cmp.Diff(histogram, gotHist); diff != "" {
		t.Errorf("histogram mismatch (-want +got):\n%s", diff)
	}
}

func TestListRunsHonoursLimit(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	for _, source := range []string{"a", "b", "c"} {
		if _, err := database.RecordRun(StatsRun{
			Source: source, CameraCount: 3, ConcernedViews: 3, TotalPairs: 10,
		}, map[int]float64{0: 1}); err != nil {
			t.Fatalf("RecordRun(%s) failed: %v", source, err)
		}
	}

	runs, err := database.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
}

func TestGetRunMissing(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	if _, err := database.GetRun("no-such-run"); err != sql.ErrNoRows {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestLatestRun(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	if _, err := database.LatestRun(); err != sql.ErrNoRows {
		t.Fatalf("empty database: error = %v, want sql.ErrNoRows", err)
	}

	id, err := database.RecordRun(StatsRun{
		Source: "only", CameraCount: 2, ConcernedViews: 3, TotalPairs: 4,
	}, map[int]float64{0: 0, 1: 2, 2: 2})
	if err != nil {
		t.Fatal(err)
	}
	latest, err := database.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.ID != id {
		t.Errorf("latest run id = %s, want %s", latest.ID, id)
	}
}

func TestRunHistogramEmptyForUnknownRun(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	histogram, err := database.RunHistogram("missing")
	if err != nil {
		t.Fatalf("RunHistogram failed: %v", err)
	}
	if len(histogram) != 0 {
		t.Errorf("expected empty histogram, got %v", histogram)
	}
}
