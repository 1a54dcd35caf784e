// Package server provides the HTTP server for the jewelry try-on engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/tryon/internal/server/api"
	"github.com/ayusman/tryon/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Engine    api.Engine
	Loader    api.AssetLoader

	// StreamInterval is the MJPEG frame period. Zero means DefaultStreamInterval.
	StreamInterval time.Duration
}

// Server represents the HTTP server for the try-on application.
type Server struct {
	config     Config
	router     *chi.Mux
	start      time.Time
	httpServer *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	s := &Server{
		config: config,
		router: r,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/api/health", s.handleHealth)

	if s.config.Store != nil {
		jewelryHandler := api.NewJewelryHandler(s.config.Store, s.config.Loader)
		r.Route("/api/jewelry", func(r chi.Router) {
			r.Get("/", jewelryHandler.List)
			r.Post("/", jewelryHandler.Create)
			r.Get("/{id}", jewelryHandler.Get)
			r.Put("/{id}", jewelryHandler.Update)
			r.Delete("/{id}", jewelryHandler.Delete)
		})

		calibrationHandler := api.NewCalibrationHandler(s.config.Store, s.config.Engine)
		r.Get("/api/calibrations", calibrationHandler.List)
		r.Put("/api/calibrations/{category}", calibrationHandler.Put)
	}

	if s.config.Engine != nil {
		tryOn := api.NewTryOnHandler(s.config.Engine, s.config.Loader)
		r.Route("/api/tryon", func(r chi.Router) {
			r.Get("/", tryOn.Get)
			r.Put("/jewelry", tryOn.SelectJewelry)
			r.Delete("/jewelry", tryOn.ClearJewelry)
			r.Put("/active", tryOn.SetActive)
			r.Patch("/adjustment", tryOn.PatchAdjustment)
			r.Post("/adjustment/reset", tryOn.ResetAdjustment)
			r.Handle("/stream", NewStreamHandler(s.config.Engine, s.config.StreamInterval))
			r.Handle("/events", NewEventsHandler(s.config.Engine))
		})
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Engine != nil {
		response["tryon"] = s.config.Engine.State()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	log.Printf("Starting web server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
