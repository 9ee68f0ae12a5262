package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stayledger/internal/properties/handler"
	"stayledger/pkg/config"
	"stayledger/pkg/contracts"
	"stayledger/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Application owns the HTTP server and the middleware stacks around the
// health and API routers.
type Application struct {
	cfg         *config.Config
	server      *http.Server
	idempotency *middleware.LocalIdempotencyStore
	rateLimiter *middleware.AccountRateLimiter
}

func NewApplication() *Application {
	return &Application{}
}

// SetApp builds both routers and the server around them.
func (a *Application) SetApp(cfg *config.Config, appHandler contracts.Handler) {
	a.cfg = cfg

	mux := http.NewServeMux()
	health := a.healthStack(cfg)
	mux.Handle("/health", health)
	mux.Handle("/ready", health)
	mux.Handle("/", a.apiStack(cfg, appHandler))

	a.server = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	cfg.Log.Info("HTTP server configured", "port", cfg.Port)
}

// healthStack keeps the probes cheap: recovery and logging only, no
// rate limits or body checks in front of them.
func (a *Application) healthStack(cfg *config.Config) http.Handler {
	router := httprouter.New()
	handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log).RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	return h
}

// apiStack layers the defensive chain over the API routes. Listed inside
// out: the idempotency cache sits closest to the handlers so a replayed
// settlement never reaches them, recovery sits outermost so nothing
// escapes unlogged.
func (a *Application) apiStack(cfg *config.Config, appHandler contracts.Handler) http.Handler {
	router := httprouter.New()
	appHandler.RegisterRoutes(router)

	a.idempotency = middleware.NewLocalIdempotencyStore(cfg.IdempotencyTTL, int64(cfg.CacheMaxSize))
	a.rateLimiter = middleware.NewAccountRateLimiter(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		middleware.DefaultAccountExtractor,
		cfg.Log,
	)

	var h http.Handler = router
	h = middleware.Idempotency(a.idempotency, "Idempotency-Key")(h)
	h = middleware.RequestTimeout(cfg.RequestTimeout)(h)
	h = middleware.AccountRateLimit(a.rateLimiter)(h)
	if cfg.SignatureSecret != "" {
		h = middleware.SignatureVerification(cfg.SignatureSecret, cfg.Log)(h)
		cfg.Log.Info("Request signature verification enabled")
	}
	h = middleware.ContentTypeValidation(cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	return h
}

// Run serves until the process receives SIGINT or SIGTERM, then drains.
func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.idempotency.Stop()
	a.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
