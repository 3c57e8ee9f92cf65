// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, compression, and rate limiting.
//
// Two surfaces are mounted:
//   - the public rider surface under /t/{tenant}
//   - the operator API under {API_BASE_PATH}/tenants/{tenant}
//
// Both resolve the tenant with middleware.Tenant before any handler runs.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/config"
	"github.com/tbourn/rider-feedback/internal/http/handlers"
	"github.com/tbourn/rider-feedback/internal/http/middleware"
	"github.com/tbourn/rider-feedback/internal/services"
	"github.com/tbourn/rider-feedback/internal/throttle"
)

const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsExpose  = []string{"X-Request-ID", "Retry-After", "Content-Disposition", "Content-Length"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//  8. Compression (skips PNG, ZIP and XLSX downloads)
//  9. Rate limiter (per client IP)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, th throttle.Throttle, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// ClientIP keys the submission throttle and the rate limiter. Forwarding
	// headers count only when the peer is a listed proxy; otherwise RemoteAddr.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("ignoring trusted proxies")
		_ = r.SetTrustedProxies(nil)
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.Logger(middleware.RedactOptions{LogHeaders: cfg.GinMode == gin.DebugMode}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (allow all if none configured) and security headers
	corsCfg := cors.Config{
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExpose,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// 8) Compression
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".png", ".zip", ".xlsx"}),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	// 9) Token-bucket rate limiter per IP (RATE_RPS=0 disables it)
	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
		r.Use(rl.Handler())
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db/throttle/config
	tenants := &services.TenantService{DB: db}
	h := handlers.New(handlers.Deps{
		Survey:    &services.SurveyService{DB: db, Throttle: th, Location: cfg.Location},
		Catalog:   &services.CatalogService{DB: db},
		Transport: &services.TransportService{DB: db},
		Feedback:  &services.FeedbackService{DB: db},
		Reports:   &services.ReportService{DB: db, Location: cfg.Location},
		QR:        &services.QRService{DB: db, PublicBaseURL: cfg.PublicBaseURL},
		FlashKey:  []byte(cfg.FlashSecret),
	})
	h.SecureCookies = strings.HasPrefix(cfg.PublicBaseURL, "https://")

	// Rider surface
	pub := r.Group("/t/:tenant", middleware.Tenant(tenants))
	{
		pub.GET("/survey", h.SelectVehicle)
		pub.GET("/survey/:transit", h.SurveyForm)
		pub.POST("/survey/:transit", h.SubmitSurvey)
		pub.GET("/thank-you", h.ThankYou)
	}

	// Operator API
	api := groupWithPrefix(r, cfg.APIBasePath).Group("/tenants/:tenant", middleware.Tenant(tenants))
	{
		// Catalog
		api.GET("/questions", h.ListQuestions)
		api.POST("/questions", h.CreateQuestion)
		api.PUT("/questions/:id", h.UpdateQuestion)
		api.DELETE("/questions/:id", h.DeleteQuestion)
		api.POST("/questions/:id/options", h.AddOption)
		api.DELETE("/options/:id", h.DeleteOption)
		api.GET("/complaint-reasons", h.ListReasons)
		api.POST("/complaint-reasons", h.CreateReason)

		// Transport registry
		api.GET("/routes", h.ListRoutes)
		api.POST("/routes", h.CreateRoute)
		api.GET("/vehicles", h.ListVehicles)
		api.POST("/vehicles", h.CreateVehicle)

		// Feedback (read-only)
		api.GET("/submissions", h.ListSubmissions)
		api.GET("/complaints", h.ListComplaints)

		// Reports and QR
		api.GET("/reports/summary", h.ReportSummary)
		api.GET("/reports/export.xlsx", h.ReportExport)
		api.POST("/qr", h.GenerateQR)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
