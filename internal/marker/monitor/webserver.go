// Package monitor exposes the pipeline's per-tick output over HTTP for UI
// overlays and debugging: latest markers, live anchors, session stats and
// runtime tuning.
package monitor

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/marker.anchor/internal/config"
	"github.com/banshee-data/marker.anchor/internal/httputil"
	"github.com/banshee-data/marker.anchor/internal/marker"
	"github.com/banshee-data/marker.anchor/internal/monitoring"
	"github.com/banshee-data/marker.anchor/internal/version"
)

// PipelineView is the read/tune surface the web server needs from the
// pipeline. *marker.Pipeline satisfies it.
type PipelineView interface {
	LatestMarkers() []marker.DetectedMarker
	Anchors() []marker.Anchor
	Stats() marker.SessionSummary
	TickHistory() []marker.TickRecord
	Params() marker.Params
	ApplyTuning(*config.TuningConfig) error
	FrameSize() (width, height int)
}

// WebServer handles the HTTP interface for monitoring the marker pipeline.
type WebServer struct {
	address  string
	pipeline PipelineView
	server   *http.Server
}

// NewWebServer creates a web server bound to the given pipeline view.
func NewWebServer(address string, pipeline PipelineView) *WebServer {
	ws := &WebServer{
		address:  address,
		pipeline: pipeline,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/api/markers", ws.handleMarkers)
	mux.HandleFunc("/api/anchors", ws.handleAnchors)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/params", ws.handleParams)
	mux.HandleFunc("/debug/markers", ws.handleMarkerChart)
	return mux
}

// Start begins serving in a goroutine and shuts down when ctx is done.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("starting monitor server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("monitor server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ws.server.Shutdown(shutdownCtx)
}

// Handler returns the route mux, for tests and embedding.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok", "version": version.Version})
}

func (ws *WebServer) handleMarkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	markers := ws.pipeline.LatestMarkers()
	if markers == nil {
		markers = []marker.DetectedMarker{}
	}
	httputil.WriteJSONOK(w, markers)
}

func (ws *WebServer) handleAnchors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	anchors := ws.pipeline.Anchors()
	if anchors == nil {
		anchors = []marker.Anchor{}
	}
	httputil.WriteJSONOK(w, anchors)
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, ws.pipeline.Stats())
}

// handleParams serves the live tuning parameters and accepts partial
// updates using the same JSON schema as the startup config file.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, ws.pipeline.Params())
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			httputil.BadRequest(w, "read body: "+err.Error())
			return
		}
		cfg, err := config.ParseTuningConfig(body)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := ws.pipeline.ApplyTuning(cfg); err != nil {
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		httputil.WriteJSONOK(w, ws.pipeline.Params())
	default:
		httputil.MethodNotAllowed(w)
	}
}
