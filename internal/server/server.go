// Package server hosts the HTTP API: middleware, CORS and the health and
// status endpoints. Feature packages mount their routes on Router().
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/db"
	"github.com/amtly/amtly/internal/vectordb"
)

// Config holds server configuration.
type Config struct {
	Host string
	Port int
	// CORSOrigins lists allowed origins. Empty allows local development
	// origins only; "*" allows all.
	CORSOrigins []string
	// Info is reported by /api/status.
	Info Info
}

// Info describes the running configuration for status reporting.
type Info struct {
	Version            string   `json:"version"`
	LLMProvider        string   `json:"llm_provider"`
	LLMModel           string   `json:"llm_model"`
	LLMConfigured      bool     `json:"llm_configured"`
	Collection         string   `json:"collection"`
	SupportedLanguages []string `json:"supported_languages"`
}

// Server is the amtly HTTP server.
type Server struct {
	cfg        Config
	db         *db.DB
	store      vectordb.VectorStore
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. store may be nil when no document index is loaded;
// a nil logger discards output.
func New(cfg Config, database *db.DB, store vectordb.VectorStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		db:     database,
		store:  store,
		logger: logger,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(s.cfg.CORSOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.CORSOrigins
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"message":   "pong",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) documentCount() int {
	if s.store == nil {
		return 0
	}
	return s.store.Count()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type recentChat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

type status struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  struct {
		Driver         string       `json:"driver"`
		TotalChats     int          `json:"total_chats"`
		TotalMessages  int          `json:"total_messages"`
		RecentActivity []recentChat `json:"recent_activity"`
	} `json:"database"`
	VectorStore struct {
		Collection     string `json:"collection"`
		TotalDocuments int    `json:"total_documents"`
		Status         string `json:"status"`
	} `json:"vector_store"`
	Configuration Info `json:"configuration"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status(r.Context())
	if err != nil {
		s.logger.Error("status", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "An unexpected error occurred.",
			"code":  "server_error",
		})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) status(ctx context.Context) (*status, error) {
	st := &status{Status: "ok", Timestamp: time.Now().UTC(), Configuration: s.cfg.Info}
	st.Database.Driver = s.db.Driver()
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&st.Database.TotalChats); err != nil {
		return nil, fmt.Errorf("counting chats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.Database.TotalMessages); err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, title, updated_at FROM chats ORDER BY updated_at DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("listing recent chats: %w", err)
	}
	defer rows.Close()
	st.Database.RecentActivity = []recentChat{}
	for rows.Next() {
		var c recentChat
		if err := rows.Scan(&c.ID, &c.Title, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		st.Database.RecentActivity = append(st.Database.RecentActivity, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	st.VectorStore.Collection = s.cfg.Info.Collection
	st.VectorStore.TotalDocuments = s.documentCount()
	st.VectorStore.Status = "ready"
	if s.store == nil {
		st.VectorStore.Status = "unavailable"
	} else if st.VectorStore.TotalDocuments == 0 {
		st.VectorStore.Status = "empty"
	}
	return st, nil
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("amtly server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
