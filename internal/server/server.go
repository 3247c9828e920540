package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/handler"
	"github.com/subgate/subgate/internal/openapi"
	"github.com/subgate/subgate/internal/server/middleware"
	"github.com/subgate/subgate/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int // requests per minute per product key or admin IP; 0 disables
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       300,
		Version:         "dev",
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the store,
// and the authentication service guarding the product and management APIs.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	hasher     service.Hasher
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
	spec       []byte
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, store *config.Store, hasher service.Hasher, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		store:   store,
		hasher:  hasher,
		authSvc: service.NewAuthService(store, hasher, logger),
		logger:  logger,
	}

	doc, err := openapi.Generate("/", cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("generate openapi document: %w", err)
	}
	if s.spec, err = json.Marshal(doc); err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}

	s.setupRouter()
	return s, nil
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recoverer(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "WWW-Authenticate"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Public ---
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/doc", s.handleDoc)
	r.Get("/ui", s.handleUI)

	// --- Product API (API key) ---
	api := handler.NewProductAPIHandler(s.store, s.logger)
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.authSvc, s.logger))
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.RateLimitByProduct(s.cfg.RateLimit))
		}

		r.Get("/plans", api.ListPlans)
		r.Get("/plans/{productId}/payment-methods", api.ListPaymentMethods)
		r.Put("/users/{userId}", api.SyncUser)
		r.Get("/subscriptions/{userId}", api.GetSubscription)
		r.Post("/subscriptions/{userId}/upgrade", api.RequestUpgrade)
		r.Post("/{userId}/upgrade", api.RequestUpgrade)
		r.Get("/admin/pending", api.ListPending)
		r.Post("/admin/verify", api.Verify)
	})

	// --- Management API (HTTP Basic) ---
	manage := handler.NewManageHandler(s.store, s.hasher, s.logger)
	r.Route("/manage", func(r chi.Router) {
		// Throttle by IP before the gate so password guessing is limited too.
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(s.cfg.RateLimit))
		}
		r.Use(middleware.AdminAuth(s.authSvc, s.logger))

		r.Get("/dashboard", manage.Dashboard)

		r.Get("/admins", manage.ListAdmins)
		r.With(middleware.RequireSuperAdmin()).Post("/admins", manage.CreateAdmin)
		r.Get("/admins/{id}", manage.GetAdmin)
		r.Patch("/admins/{id}", manage.UpdateAdmin)
		r.Delete("/admins/{id}", manage.DeleteAdmin)

		r.Get("/products", manage.ListProducts)
		r.Post("/products", manage.CreateProduct)
		r.Get("/products/{id}", manage.GetProduct)
		r.Patch("/products/{id}", manage.UpdateProduct)
		r.Delete("/products/{id}", manage.DeleteProduct)
		r.Post("/products/{id}/regenerate-key", manage.RegenerateKey)
		r.Get("/products/{id}/payment-methods", manage.ListProductPaymentMethods)
		r.Put("/products/{id}/payment-methods", manage.SetProductPaymentMethods)

		r.Get("/plans", manage.ListPlans)
		r.Post("/plans", manage.CreatePlan)
		r.Get("/plans/{id}", manage.GetPlan)
		r.Patch("/plans/{id}", manage.UpdatePlan)
		r.Delete("/plans/{id}", manage.DeletePlan)

		r.Get("/users", manage.ListUsers)
		r.Post("/users", manage.CreateUser)
		r.Get("/users/{id}", manage.GetUser)
		r.Patch("/users/{id}", manage.UpdateUser)
		r.Delete("/users/{id}", manage.DeleteUser)

		r.Get("/subscriptions", manage.ListSubscriptions)
		r.Post("/subscriptions", manage.CreateSubscription)
		r.Get("/subscriptions/{id}", manage.GetSubscription)
		r.Patch("/subscriptions/{id}", manage.UpdateSubscription)
		r.Post("/subscriptions/{id}/cancel", manage.CancelSubscription)

		r.Get("/payment-methods", manage.ListPaymentMethods)
		r.Post("/payment-methods", manage.CreatePaymentMethod)
		r.Patch("/payment-methods/{id}", manage.UpdatePaymentMethod)
		r.Delete("/payment-methods/{id}", manage.DeletePaymentMethod)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router = r
}

// handleRoot prints a short banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "subgate %s\nAPI documentation: /ui\n", s.cfg.Version)
}

// handleHealth reports whether the store is reachable. Returns 503 when the
// ping fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, httpStatus := "healthy", http.StatusOK
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   status,
		"database": s.store.Driver(),
	})
}

// handleDoc serves the OpenAPI document.
func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.spec)
}

// handleUI serves a Swagger UI page that renders /doc.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(swaggerUIPage))
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>subgate API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/doc", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "database", s.store.Driver())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
