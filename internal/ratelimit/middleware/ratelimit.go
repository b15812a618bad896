package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"vatfiler/internal/ratelimit/models"
	"vatfiler/pkg/platform/httputil"
	"vatfiler/pkg/requestcontext"
)

type RateLimiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.Result, error)
}

// Classifier picks the budget a request counts against. ok=false lets the
// request through unchecked.
type Classifier func(r *http.Request) (class models.EndpointClass, ok bool)

type Middleware struct {
	limiter  RateLimiter
	classify Classifier
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns rate limiting off, for local runs and demos.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter RateLimiter, classify Classifier, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter:  limiter,
		classify: classify,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Handler limits classified requests per client IP. A failing limiter lets
// the request through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		class, ok := m.classify(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		result, err := m.limiter.CheckIP(ctx, ip, class)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check rate limit", "error", err, "class", class)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			writeRateLimitExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this IP address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
