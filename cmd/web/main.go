package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	"github.com/jwalitptl/innoguard/internal/config"
	"github.com/jwalitptl/innoguard/internal/handler"
	"github.com/jwalitptl/innoguard/internal/handler/web"
	"github.com/jwalitptl/innoguard/internal/middleware"
	"github.com/jwalitptl/innoguard/internal/router"
	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	"github.com/jwalitptl/innoguard/internal/screen/login"
	"github.com/jwalitptl/innoguard/internal/session"
	"github.com/jwalitptl/innoguard/pkg/circuitbreaker"
	"github.com/jwalitptl/innoguard/pkg/logger"
	"github.com/jwalitptl/innoguard/pkg/metrics"
)

// screenIdle is how long a browser's screen state outlives its last request.
const screenIdle = 30 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level: logger.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("innoguard", "web", reg)

	api := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Breaker: circuitbreaker.Settings{
			Name:        "backend-api",
			MaxRequests: cfg.Breaker.MaxFailures,
			Timeout:     time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
			Disabled:    !cfg.Breaker.Enabled,
		},
	}, apiclient.WithMetrics(m), apiclient.WithLogger(log))

	// Initialize session store
	checks := map[string]handler.Check{
		"backend_api": func(context.Context) error {
			if api.BreakerState() == "open" {
				return circuitbreaker.ErrOpen
			}
			return nil
		},
	}
	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := session.NewRedisStore(ctx, session.RedisConfig{
			URL:          cfg.Redis.URL,
			KeyPrefix:    cfg.Redis.KeyPrefix,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			TTL:          cfg.Session.TTL(),
		})
		cancel()
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}
		defer rs.Close()
		checks["redis"] = rs.Ping
		store = rs
	default:
		store = session.NewMemoryStore(cfg.Session.TTL())
	}

	registry := web.NewRegistry(screenIdle, func(id string) *web.Screens {
		sl := log.With("session_id", id)
		return &web.Screens{
			Login: login.NewScreen(api, store, id, login.NavigatorFunc(web.Navigate),
				login.WithMetrics(m), login.WithLogger(sl)),
			Dashboard: dashboard.NewScreen(api, session.Bind(store, id),
				dashboard.WithMetrics(m), dashboard.WithLogger(sl)),
		}
	})

	// Setup router
	r := router.NewRouter(web.NewHandler(registry, log), handler.NewHandler(reg, checks), m, log, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.SecureCookie,
			MaxAge:     cfg.Session.TTL(),
		},
		Audit:          middleware.NewAuditMiddleware(store, log),
		Security:       middleware.DefaultSecurityConfig(cfg.Session.SecureCookie),
		Timeout:        time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		MetricsEnabled: cfg.Monitoring.PrometheusEnabled,
		MetricsPath:    cfg.Monitoring.MetricsPath,
	})
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start server
	go func() {
		log.Zerolog().Info().
			Str("addr", srv.Addr).
			Str("api", api.BaseURL()).
			Str("session_backend", cfg.Session.Backend).
			Msg("starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
