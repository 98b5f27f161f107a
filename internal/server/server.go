// Package server exposes the dashboard over HTTP: the static assets and map
// configuration, plus per-tab sessions that turn map events into engine
// commands and sidebar views.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/assets"
	"github.com/sells-group/zipmap/internal/dashboard"
	"github.com/sells-group/zipmap/internal/mapconfig"
)

// GeoJSON routes the map configuration points its sources at.
const (
	StatesPath   = "/api/geojson/states"
	ZipcodesPath = "/api/geojson/zipcodes"
)

// Options configures a Server.
type Options struct {
	Bundle         *assets.Bundle
	MapConfig      *mapconfig.Config
	Sessions       *dashboard.Manager
	StaticDir      string
	AllowedOrigins []string
	// SheetName names the worksheet of spending exports.
	SheetName string
}

// Server serves the dashboard API.
type Server struct {
	bundle    *assets.Bundle
	mapConfig *mapconfig.Config
	sessions  *dashboard.Manager
	staticDir string
	origins   []string
	sheetName string
	log       *zap.Logger
}

// New returns a server over the loaded assets.
func New(opts Options) *Server {
	cfg := opts.MapConfig
	if cfg != nil {
		cfg = cfg.WithSourceData(mapconfig.SourceStates, StatesPath).
			WithSourceData(mapconfig.SourceZipcodes, ZipcodesPath)
	}
	bundle := opts.Bundle
	if bundle == nil {
		bundle = assets.Empty()
	}
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "spending"
	}
	return &Server{
		bundle:    bundle,
		mapConfig: cfg,
		sessions:  opts.Sessions,
		staticDir: opts.StaticDir,
		origins:   opts.AllowedOrigins,
		sheetName: sheet,
		log:       zap.L().With(zap.String("component", "server")),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/map-config", s.handleMapConfig)
		r.Get("/geojson/states", s.handleStates)
		r.Get("/geojson/zipcodes", s.handleZipcodes)
		r.Get("/lookup/{state}", s.handleLookup)
		r.Get("/zip3/{zip3}", s.handleZip3)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteSession)
				r.Get("/sidebar", s.handleSidebar)
				r.Get("/spending.xlsx", s.handleSpendingExport)
				r.Post("/click", s.handleClick)
				r.Post("/hover", s.handleHover)
				r.Post("/close", s.handleClose)
				r.Post("/slider", s.handleSlider)
				r.Post("/key", s.handleKey)
				r.Post("/pointer", s.handlePointer)
			})
		})
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes an optional JSON request body into v. An empty body
// leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
