package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	BasePath      string
	StaticDir     string
	FlowTTL       time.Duration
	SessionTTL    time.Duration
	SecureCookies bool
	LogLevel      string
	LogFormat     string
	Redis         RedisConfig
	RateLimit     RateLimitConfig
}

// RateLimitConfig sets per-IP budgets. A zero budget turns that class off.
type RateLimitConfig struct {
	Disabled       bool
	AuthPerMinute  int
	WritePerMinute int
}

// RedisConfig configures the optional Redis flow store. An empty URL keeps
// flows in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultPort      = "8000"
	defaultBasePath  = "/app/"
	defaultStaticDir = "static/app"
	defaultFlowTTL   = 30 * time.Minute
	defaultSession   = 12 * time.Hour
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numeric or duration values fall back to their defaults; the
// returned warnings say which ones.
func FromEnv() (Server, []string) {
	var warnings []string

	addr := os.Getenv("VATFILER_ADDR")
	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = defaultPort
		}
		addr = ":" + port
	}

	cfg := Server{
		Addr:          addr,
		BasePath:      envOr("BASE_PATH", defaultBasePath),
		StaticDir:     envOr("STATIC_DIR", defaultStaticDir),
		FlowTTL:       durationEnv("FLOW_TTL", defaultFlowTTL, &warnings),
		SessionTTL:    durationEnv("SESSION_TTL", defaultSession, &warnings),
		SecureCookies: os.Getenv("SECURE_COOKIES") == "true",
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intEnv("REDIS_POOL_SIZE", 10, &warnings),
			MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2, &warnings),
			DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second, &warnings),
			ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second, &warnings),
			WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second, &warnings),
		},
		RateLimit: RateLimitConfig{
			Disabled:       os.Getenv("RATE_LIMIT_DISABLED") == "true",
			AuthPerMinute:  intEnv("RATE_LIMIT_AUTH_PER_MINUTE", 10, &warnings),
			WritePerMinute: intEnv("RATE_LIMIT_WRITE_PER_MINUTE", 120, &warnings),
		},
	}
	return cfg, warnings
}

// Validate checks invariants the router relies on.
func (s Server) Validate() error {
	var errs []error
	if !strings.HasPrefix(s.BasePath, "/") || !strings.HasSuffix(s.BasePath, "/") {
		errs = append(errs, fmt.Errorf("base path %q must start and end with /", s.BasePath))
	}
	if s.FlowTTL <= 0 {
		errs = append(errs, errors.New("flow ttl must be positive"))
	}
	if s.SessionTTL < 0 {
		errs = append(errs, errors.New("session ttl cannot be negative"))
	}
	if s.RateLimit.AuthPerMinute < 0 || s.RateLimit.WritePerMinute < 0 {
		errs = append(errs, errors.New("rate limits cannot be negative"))
	}
	if s.Redis.URL != "" && s.Redis.PoolSize <= 0 {
		errs = append(errs, errors.New("redis pool size must be positive"))
	}
	return errors.Join(errs...)
}

// LogAttrs returns the non-secret settings for the startup log line.
func (s Server) LogAttrs() []any {
	return []any{
		slog.String("addr", s.Addr),
		slog.String("base_path", s.BasePath),
		slog.String("static_dir", s.StaticDir),
		slog.Duration("flow_ttl", s.FlowTTL),
		slog.Duration("session_ttl", s.SessionTTL),
		slog.Bool("redis", s.Redis.URL != ""),
		slog.Bool("rate_limit", !s.RateLimit.Disabled),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int, warnings *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not an integer, using %d", key, v, fallback))
		return fallback
	}
	return n
}

func durationEnv(key string, fallback time.Duration, warnings *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not a duration, using %s", key, v, fallback))
		return fallback
	}
	return d
}
