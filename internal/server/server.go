// Package server provides the HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bryan-buckman/parkline/internal/database"
	"github.com/bryan-buckman/parkline/internal/itinerary"
	"github.com/bryan-buckman/parkline/internal/live"
	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/bryan-buckman/parkline/internal/parksync"
	"github.com/bryan-buckman/parkline/internal/themeparks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RefreshTimeout bounds a refresh triggered over the API.
const RefreshTimeout = 5 * time.Minute

// EntityClient serves entity lookups straight from the feed API.
type EntityClient interface {
	Entity(ctx context.Context, entityID string) (json.RawMessage, error)
	Children(ctx context.Context, entityID string) ([]themeparks.ChildEntity, error)
	Destinations(ctx context.Context) ([]themeparks.Destination, error)
}

// Refresher runs a sync round on demand.
type Refresher interface {
	RunOnce(ctx context.Context) (parksync.Report, error)
}

// NewsSource lists stored news.
type NewsSource interface {
	Latest(limit int) ([]model.NewsItem, error)
}

// Deps holds everything the handlers use.
type Deps struct {
	Store     database.Store
	Loader    *live.Loader
	Entities  EntityClient
	Itinerary *itinerary.Store
	Refresher Refresher
	News      NewsSource
	Logger    *slog.Logger
}

// Server is the main HTTP server.
type Server struct {
	Deps
	router chi.Router
	http   *http.Server
}

// New creates a server with its routes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With(slog.String("component", "server"))
	s := &Server{Deps: deps}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/parks", s.handleParks)
		r.Get("/parks/{parkID}/live", s.handleParkLive)
		r.Get("/parks/{parkID}/attractions", s.handleParkAttractions)

		r.Get("/entities/{entityID}", s.handleEntity)
		r.Get("/entities/{entityID}/children", s.handleEntityChildren)
		r.Get("/destinations", s.handleDestinations)

		r.Get("/attractions/{attractionID}/history", s.handleHistory)

		r.Route("/itinerary", func(r chi.Router) {
			r.Get("/", s.handleItinerary)
			r.Post("/", s.handleAddItinerary)
			r.Delete("/", s.handleClearItinerary)
			r.Get("/upcoming", s.handleUpcoming)
			r.Get("/contains/{attractionID}", s.handleContains)
			r.Delete("/{itemID}", s.handleRemoveItinerary)
		})

		r.Get("/news", s.handleNews)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
	})

	s.router = r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("Server starting", slog.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelWarn
				}
				logger.LogAttrs(r.Context(), level, "HTTP request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// remoteStatus maps a feed API failure to a response status.
func remoteStatus(err error) int {
	var se *themeparks.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
