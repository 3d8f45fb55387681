package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/trackstore"
)

// TrackReader reads a storm's track file.
type TrackReader interface {
	Read(storm domain.StormID, suffix, technique string) (*trackstore.Store, error)
}

// Server exposes health, readiness, metrics, and track query endpoints.
type Server struct {
	httpServer *http.Server
	tracks     TrackReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes.
// When tracks is non-nil it also serves GET /tracks/{atcfID}.
func NewServer(addr string, ready sharedobs.ReadinessChecker, tracks TrackReader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tracks: tracks,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if tracks != nil {
		mux.HandleFunc("GET /tracks/{atcfID}", s.handleTrack)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type trackResponse struct {
	ATCFID  string           `json:"atcf_id"`
	Records []recordResponse `json:"records"`
	Corrupt int              `json:"corrupt_lines"`
}

type recordResponse struct {
	DTG       string              `json:"dtg"`
	Technique string              `json:"technique"`
	TechNum   int                 `json:"tech_num"`
	StormName string              `json:"storm_name,omitempty"`
	Track     []domain.TrackPoint `json:"track"`
}

// handleTrack serves the records of one track file. Query parameters
// "suffix" and "technique" select the file family and filter records.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	storm, err := domain.ParseStormID(r.PathValue("atcfID"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	q := r.URL.Query()
	store, err := s.tracks.Read(storm, q.Get("suffix"), q.Get("technique"))
	if err != nil {
		s.logger.Error("track read failed", "atcf_id", storm.String(), "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrParse) {
			status = http.StatusBadRequest
		}
		sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	if len(store.Records) == 0 {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no records for " + storm.String()})
		return
	}

	resp := trackResponse{
		ATCFID:  storm.String(),
		Records: make([]recordResponse, 0, len(store.Records)),
		Corrupt: store.Corrupt,
	}
	for _, rec := range store.Records {
		resp.Records = append(resp.Records, recordResponse{
			DTG:       rec.DTG,
			Technique: rec.Technique,
			TechNum:   rec.TechNum,
			StormName: rec.StormName,
			Track:     rec.Track,
		})
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}
