// Package server exposes a baked transport solution over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/logging"
	"github.com/df07/go-prt/pkg/precompute"
	"github.com/df07/go-prt/pkg/scene"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/go-json-experiment/json"
	"github.com/pkg/errors"
)

// Server answers radiance queries against one bake result
type Server struct {
	port   int
	result *precompute.Result
	logger *slog.Logger
}

// NewServer creates a new web server
func NewServer(port int, result *precompute.Result, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{port: port, result: result, logger: logger}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/light", s.handleLight)
	mux.HandleFunc("GET /api/scenes", s.handleScenes)
	mux.HandleFunc("GET /api/radiance", s.handleRadiance)
	mux.HandleFunc("GET /api/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	return mux
}

// Start serves until ctx is canceled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", "http://localhost"+srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// HealthResponse reports the loaded bake
type HealthResponse struct {
	Status    string `json:"status"`
	Run       string `json:"run"`
	Vertices  int    `json:"vertices"`
	Triangles int    `json:"triangles"`
}

// LightResponse lists the lighting coefficients, one RGB triple per basis function
type LightResponse struct {
	Coefficients [sh.CoefficientCount][3]float64 `json:"coefficients"`
}

// ErrorResponse carries a request failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mesh := s.result.Scene.Mesh
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Run:       s.result.RunID,
		Vertices:  mesh.VertexCount(),
		Triangles: mesh.TriangleCount(),
	})
}

func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	var resp LightResponse
	for i := 0; i < sh.CoefficientCount; i++ {
		for c := 0; c < 3; c++ {
			resp.Coefficients[i][c] = s.result.Light[c][i]
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	infos, err := scene.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", "err", err)
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", "status", status, "err", err)
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, errors.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, errors.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseVecParam parses a required "x,y,z" parameter
func parseVecParam(values url.Values, key string) (core.Vec3, error) {
	value := values.Get(key)
	if value == "" {
		return core.Vec3{}, errors.Errorf("missing %s", key)
	}
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return core.Vec3{}, errors.Errorf("%s must be x,y,z, got: %s", key, value)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, errors.Errorf("invalid %s: %s", key, value)
		}
		v[i] = f
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}

func vecJSON(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
