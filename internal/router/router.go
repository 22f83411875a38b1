package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/innoguard/internal/handler"
	"github.com/jwalitptl/innoguard/internal/handler/web"
	"github.com/jwalitptl/innoguard/internal/middleware"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
	"github.com/jwalitptl/innoguard/pkg/httputil"
	"github.com/jwalitptl/innoguard/pkg/logger"
	"github.com/jwalitptl/innoguard/pkg/metrics"
)

type Router struct {
	engine  *gin.Engine
	web     *web.Handler
	h       *handler.Handler
	metrics *metrics.Metrics
	config  RouterConfig
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	Session          middleware.SessionConfig
	SizeLimit        middleware.SizeLimitConfig
	Audit            *middleware.AuditMiddleware
	Security         middleware.SecurityConfig
	Timeout          time.Duration
	MetricsEnabled   bool
	MetricsPath      string
}

func NewRouter(webH *web.Handler, h *handler.Handler, m *metrics.Metrics, l *logger.Logger, config RouterConfig) *Router {
	engine := gin.New()
	timeout := middleware.DefaultTimeoutConfig()
	if config.Timeout > 0 {
		timeout.Duration = config.Timeout
	}
	engine.SetHTMLTemplate(web.Templates())

	r := &Router{
		engine:  engine,
		web:     webH,
		h:       h,
		metrics: m,
		config:  config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(l),
		middleware.Logger(l),
		r.metricsMiddleware(),
		middleware.Timeout(timeout),
		middleware.SecurityHeaders(config.Security),
	)

	return r
}

func (r *Router) Setup() {
	r.h.RegisterRoutes(r.engine)
	if r.config.MetricsEnabled {
		r.engine.GET(r.config.MetricsPath, r.h.MetricsHandler)
	}

	var opts web.RouteOptions
	if r.config.RateLimitEnabled {
		opts.LoginLimit = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		}).RateLimit()
	}
	if r.config.Audit != nil {
		opts.Audit = r.config.Audit.AuditLog("patient")
	}

	sizeLimit := r.config.SizeLimit
	if sizeLimit.MaxBodySize == 0 {
		sizeLimit = middleware.DefaultSizeLimitConfig()
	}

	pages := r.engine.Group("")
	pages.Use(
		middleware.Session(r.config.Session),
		middleware.SizeLimit(sizeLimit),
	)
	r.web.RegisterRoutes(pages, opts)

	api := pages.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	r.web.RegisterAPIRoutes(api, opts)

	r.engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.NotFound("route "+c.Request.URL.Path, nil))
	})
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.metrics == nil {
			c.Next()
			return
		}
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		if c.Writer.Status() >= 400 {
			r.metrics.ErrorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
