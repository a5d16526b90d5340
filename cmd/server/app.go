package main

import (
	"net/http"
	"time"

	"github.com/diewo77/go-spinning/auth"
	"github.com/diewo77/go-spinning/httpx"
	"github.com/diewo77/go-spinning/internal/db"
	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/policy"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	sessions  *auth.Sessions
	handler   http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(conn *gorm.DB, routerCfg *policy.RouterConfig, sessions *auth.Sessions) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        conn,
		routerCfg: routerCfg,
		sessions:  sessions,
	}
	app.setupRoutes()

	// Outermost first: request id, access log, panic recovery, session.
	app.handler = httpx.RequestIDMiddleware(withLogging(recoverer(sessions.Middleware(app.mux))))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.health)
	a.routerCfg.Register(a.mux)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := db.HealthCheck(a.db.WithContext(r.Context())); err != nil {
		logger.For("http").WithError(err).Warn("health check failed")
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging writes one access log line per request.
func withLogging(next http.Handler) http.Handler {
	log := logger.For("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"request_id": httpx.RequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

// recoverer turns a panic into a 500 with the usual error body.
func recoverer(next http.Handler) http.Handler {
	log := logger.For("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.WithFields(logrus.Fields{
					"request_id": httpx.RequestID(r.Context()),
					"panic":      p,
				}).Error("handler panic")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
