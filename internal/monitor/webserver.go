// Package monitor serves the HTTP diagnostics surface for visibility
// statistics: JSON endpoints over recorded runs plus debug chart renderings
// of the latest valid-view histogram.
package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/danielrogel/xrmocap/internal/db"
)

// WebServer handles the HTTP interface for inspecting recorded statistics
// runs. It provides health checks, run listings and chart endpoints.
type WebServer struct {
	address string
	db      *db.DB
	server  *http.Server
}

// NewWebServer creates a web server bound to the given address, backed by the
// runs database.
func NewWebServer(address string, database *db.DB) *WebServer {
	ws := &WebServer{
		address: address,
		db:      database,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

func (ws *WebServer) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", ws.handleHealth)
	mux.HandleFunc("GET /api/runs", ws.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", ws.handleGetRun)
	mux.HandleFunc("GET /debug/histogram", ws.handleHistogramChart)
	mux.HandleFunc("GET /debug/histogram.png", ws.handleHistogramPNG)
	return mux
}

// Handler exposes the route table for tests.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start begins the HTTP server in a goroutine and shuts it down when the
// context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("starting monitor server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start monitor server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down monitor server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("monitor server shutdown error: %v", err)
		return ws.server.Close()
	}
	return nil
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ws *WebServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := ws.db.ListRuns(50)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.StatsRun{}
	}
	ws.writeJSON(w, http.StatusOK, runs)
}

// runDetail is the JSON shape for a single run with its histogram attached.
type runDetail struct {
	db.StatsRun
	Histogram map[int]float64 `json:"histogram"`
}

func (ws *WebServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := ws.db.GetRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		ws.writeJSONError(w, http.StatusNotFound, "no such run")
		return
	}
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to load run: "+err.Error())
		return
	}
	histogram, err := ws.db.RunHistogram(id)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to load histogram: "+err.Error())
		return
	}
	ws.writeJSON(w, http.StatusOK, runDetail{StatsRun: run, Histogram: histogram})
}

// latestRunWithHistogram resolves the run to chart: the id query parameter if
// present, else the most recent run.
func (ws *WebServer) latestRunWithHistogram(r *http.Request) (db.StatsRun, map[int]float64, error) {
	id := r.URL.Query().Get("id")
	var run db.StatsRun
	var err error
	if id != "" {
		run, err = ws.db.GetRun(id)
	} else {
		run, err = ws.db.LatestRun()
	}
	if err != nil {
		return db.StatsRun{}, nil, err
	}
	histogram, err := ws.db.RunHistogram(run.ID)
	if err != nil {
		return db.StatsRun{}, nil, err
	}
	return run, histogram, nil
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
