// Package api provides the HTTP API server for PharmaPet.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/health"
	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/notifications"
	"github.com/pharmapet/pharmapet/internal/report"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	wsHub      *WebSocketHub

	meds     *storage.MedicationStore
	metrics  *storage.MetricStore
	contacts *storage.ContactStore
	settings *storage.SettingsStore

	statusCache *health.StatusCache
	resolver    *health.Resolver
	analyzer    *health.Analyzer
	reports     *report.Generator
	notify      *notifications.Service

	// daemonCtx outlives individual requests; background work spawned by
	// a handler (classification, escalation) runs on it so a client
	// disconnect cannot cancel an alert mid-flight.
	daemonCtx context.Context

	log *logging.Logger
}

// Config for the server
type Config struct {
	Host string
	Port int

	Medications *storage.MedicationStore
	Metrics     *storage.MetricStore
	Contacts    *storage.ContactStore
	Settings    *storage.SettingsStore

	StatusCache  *health.StatusCache
	Resolver     *health.Resolver
	Analyzer     *health.Analyzer
	Reports      *report.Generator
	Notification *notifications.Service

	DaemonContext context.Context
}

// New creates a new API server
func New(cfg Config) *Server {
	daemonCtx := cfg.DaemonContext
	if daemonCtx == nil {
		daemonCtx = context.Background()
	}

	s := &Server{
		wsHub:       NewWebSocketHub(),
		meds:        cfg.Medications,
		metrics:     cfg.Metrics,
		contacts:    cfg.Contacts,
		settings:    cfg.Settings,
		statusCache: cfg.StatusCache,
		resolver:    cfg.Resolver,
		analyzer:    cfg.Analyzer,
		reports:     cfg.Reports,
		notify:      cfg.Notification,
		daemonCtx:   daemonCtx,
		log:         logging.WithField("component", "api"),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Health status
		r.Get("/status", s.handleGetStatus)
		r.Post("/analyze", s.handleAnalyze)

		// Pet
		r.Get("/pet", s.handleGetPet)
		r.Put("/pet/name", s.handleSetPetName)

		// Medications
		r.Get("/medications", s.handleGetMedications)
		r.Post("/medications", s.handleCreateMedication)
		r.Get("/medications/{id}", s.handleGetMedication)
		r.Put("/medications/{id}", s.handleUpdateMedication)
		r.Delete("/medications/{id}", s.handleDeleteMedication)
		r.Post("/medications/{id}/take", s.handleTakeMedication)

		// Metric series and data points
		r.Get("/series", s.handleGetSeries)
		r.Post("/series", s.handleCreateSeries)
		r.Get("/series/{id}", s.handleGetOneSeries)
		r.Put("/series/{id}", s.handleUpdateSeries)
		r.Delete("/series/{id}", s.handleDeleteSeries)
		r.Get("/series/{id}/points", s.handleGetPoints)
		r.Post("/series/{id}/points", s.handleLogPoint)

		// Health contacts
		r.Get("/contacts", s.handleGetContacts)
		r.Post("/contacts", s.handleCreateContact)
		r.Put("/contacts/{id}", s.handleUpdateContact)
		r.Delete("/contacts/{id}", s.handleDeleteContact)

		// Conditions
		r.Get("/conditions", s.handleGetConditions)
		r.Put("/conditions", s.handleSetConditions)

		// Report
		r.Get("/report", s.handleGetReport)

		// Notifications
		r.Get("/notifications", s.handleGetNotifications)
		r.Get("/notifications/unread-count", s.handleUnreadCount)
		r.Post("/notifications/{id}/read", s.handleMarkRead)
	})

	// WebSocket
	r.Get("/ws", s.handleWebSocket)

	s.router = r
}

// Start runs the server and begins pushing real-time events
func (s *Server) Start() error {
	go s.wsHub.Run()

	// Real-time bridges: status changes and notifications go out over
	// the websocket as they happen.
	if s.statusCache != nil {
		s.statusCache.Subscribe("ws-bridge", func(status core.HealthStatus, message string) {
			s.wsHub.Broadcast(WebSocketMessage{
				Type:      "health_status",
				Data:      map[string]string{"status": string(status), "message": message},
				Timestamp: time.Now(),
			})
		})
	}
	if s.notify != nil {
		s.notify.Subscribe(newWSNotificationSubscriber(s.wsHub))
	}

	s.log.Info("API server listening on http://%s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.statusCache != nil {
		s.statusCache.Unsubscribe("ws-bridge")
	}
	s.wsHub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps store errors onto HTTP status codes
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrRecordNotFound) {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}
