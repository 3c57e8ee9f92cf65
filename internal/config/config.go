// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, the submission throttle, report time zone and observability.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal images
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ThrottleConfig selects the submission throttle backend and its window.
type ThrottleConfig struct {
	Backend  string        // memory|redis
	Window   time.Duration // one accepted submission per client+vehicle per window
	RedisURL string        // redis://host:6379/0, required for the redis backend
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for operator API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // postgres DSN

	// Feedback
	TimeZone      string         // IANA zone used for periods and "today"
	Location      *time.Location // resolved TimeZone
	PublicBaseURL string         // origin encoded into vehicle QR codes
	Throttle      ThrottleConfig

	// API rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS           CORSConfig
	Security       SecurityConfig
	TrustedProxies []string // IPs/CIDRs allowed to set X-Forwarded-For; empty trusts none
	FlashSecret    string   // HMAC key for the rider flash cookie; random per process when empty

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "feedback.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		// Feedback
		TimeZone:      getenv("TIMEZONE", "America/Mazatlan"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		Throttle: ThrottleConfig{
			Backend:  strings.ToLower(getenv("THROTTLE_BACKEND", "memory")),
			Window:   getdur("THROTTLE_WINDOW", 15*time.Minute),
			RedisURL: getenv("REDIS_URL", ""),
		},

		// API rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		TrustedProxies: splitCSV(getenv("TRUSTED_PROXIES", "")),
		FlashSecret:    getenv("FLASH_SECRET", ""),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "rider-feedback"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = "postgres"
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err == nil {
		cfg.Location = loc
	}
	if errs := cfg.validate(err); len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

// validate lists every problem of cfg so a misconfigured deployment is fixed
// in one pass. tzErr is the outcome of resolving TIMEZONE.
func (cfg Config) validate(tzErr error) []error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		check(true, "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	check(strings.TrimSpace(cfg.Port) == "", "PORT must not be empty")
	check(cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0,
		"timeouts must be positive durations")
	check(cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0")

	switch cfg.DBDriver {
	case "sqlite":
		check(strings.TrimSpace(cfg.DBPath) == "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(cfg.DatabaseURL) == "", "DATABASE_URL is required when DB_DRIVER=postgres")
	default:
		check(true, "DB_DRIVER must be one of: sqlite, postgres")
	}

	if tzErr != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", cfg.TimeZone, tzErr))
	}
	u, err := url.Parse(cfg.PublicBaseURL)
	check(err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https"),
		"PUBLIC_BASE_URL must be an absolute http(s) URL")

	check(cfg.Throttle.Window <= 0, "THROTTLE_WINDOW must be > 0")
	switch cfg.Throttle.Backend {
	case "memory":
	case "redis":
		check(strings.TrimSpace(cfg.Throttle.RedisURL) == "", "REDIS_URL is required when THROTTLE_BACKEND=redis")
	default:
		check(true, "THROTTLE_BACKEND must be one of: memory, redis")
	}

	check(cfg.RateRPS < 0, "RATE_RPS must be >= 0")
	check(cfg.RateBurst < 1, "RATE_BURST must be >= 1")
	check(cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0")
	for _, p := range cfg.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p))
		}
	}
	check(cfg.FlashSecret != "" && len(cfg.FlashSecret) < minFlashSecret,
		fmt.Sprintf("FLASH_SECRET must be at least %d bytes", minFlashSecret))
	check(cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errs
}

const minFlashSecret = 16

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

// lookup reads k and parses it; unset, empty or unparsable values yield def.
func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	return lookup(k, def, func(v string) (string, error) { return v, nil })
}

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

var errNotBool = errors.New("not a boolean")

func getbool(k string, def bool) bool {
	return lookup(k, def, func(v string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
