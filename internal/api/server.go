// Package api exposes the split service over HTTP JSON. The service
// itself is transport-agnostic; this is the embedding surface.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/justkalesh/foodhunt101-sub000/internal/auth"
	"github.com/justkalesh/foodhunt101-sub000/internal/middleware"
	"github.com/justkalesh/foodhunt101-sub000/internal/service"
)

// Server wires the split service into an HTTP router.
type Server struct {
	svc            *service.SplitService
	jwt            *auth.JWTManager
	allowedOrigins []string
}

// NewServer creates a Server.
func NewServer(svc *service.SplitService, jwt *auth.JWTManager, allowedOrigins []string) *Server {
	return &Server{svc: svc, jwt: jwt, allowedOrigins: allowedOrigins}
}

// Router builds the HTTP router: health, metrics, and the authenticated
// split API. The transport-level rate limit here is abuse protection;
// the domain's join-request slot limit lives in the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	allowed := s.allowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.Limit(100, time.Minute))
	r.Use(middleware.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Listing works anonymously; a known caller also sees their
		// closed-split history.
		r.With(middleware.OptionalAuth(s.jwt)).Get("/splits", s.handleListSplits)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.jwt))

			r.Post("/splits", s.handleCreateSplit)
			r.Post("/splits/{splitID}/join", s.handleRequestJoin)
			r.Post("/splits/{splitID}/leave", s.handleLeaveSplit)
			r.Post("/splits/{splitID}/complete", s.handleCompleteSplit)
			r.Delete("/splits/{splitID}", s.handleDeleteSplit)

			r.Post("/requests/{requestID}/respond", s.handleRespond)
			r.Delete("/requests/{requestID}", s.handleCancelRequest)
		})
	})

	return r
}
