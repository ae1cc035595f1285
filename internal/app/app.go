// Package app wires configuration, storage, the core service and the RPC
// layer into a runnable HTTP handler.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/billspace/internal/auth"
	"github.com/mmynk/billspace/internal/config"
	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/metrics"
	"github.com/mmynk/billspace/internal/middleware"
	"github.com/mmynk/billspace/internal/service"
	"github.com/mmynk/billspace/internal/storage"
	"github.com/mmynk/billspace/internal/storage/memstore"
	"github.com/mmynk/billspace/internal/storage/sqlstore"
)

// OpenStore opens the store selected by cfg. SQL stores are migrated.
func OpenStore(cfg config.StoreConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverSQLite:
		return sqlstore.Open(sqlstore.DriverSQLite, cfg.DSN)
	case config.DriverPostgres:
		return sqlstore.Open(sqlstore.DriverPostgres, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// NewCore builds the domain service over store.
func NewCore(cfg *config.Config, store storage.Store) *core.Service {
	return core.NewService(store, auth.NewBcryptHasher(cfg.Auth.BcryptCost))
}

// Server is the assembled HTTP surface.
type Server struct {
	Handler http.Handler
	Metrics *metrics.Metrics
	limiter *middleware.RateLimiter
}

// NewServer mounts every RPC service with the interceptor chain. Metrics
// sit outermost so rejected calls are counted too.
func NewServer(cfg *config.Config, store storage.Store, logger *slog.Logger) *Server {
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst, service.CredentialProcedures...)
	m := metrics.New(true)

	interceptors := connect.WithInterceptors(
		m.Interceptor(),
		limiter.Interceptor(),
		middleware.RequireAuth(jwtManager, service.PublicProcedures...),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	service.Mount(mux, NewCore(cfg, store), jwtManager, logger, interceptors)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	})

	return &Server{
		// h2c for HTTP/2 without TLS (required for gRPC clients)
		Handler: h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		Metrics: m,
		limiter: limiter,
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.limiter.StartCleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
