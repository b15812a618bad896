package service

import (
	"context"
	"log/slog"

	"vatfiler/internal/ratelimit/metrics"
	"vatfiler/internal/ratelimit/models"
	dErrors "vatfiler/pkg/domain-errors"
	audit "vatfiler/pkg/platform/audit"
	"vatfiler/pkg/requestcontext"
)

const keyPrefixIP = "ip"

// BucketStore counts requests per key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service applies per-class budgets to client IPs.
type Service struct {
	buckets        BucketStore
	limits         map[models.EndpointClass]models.Limit
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

// New constructs a Service. Classes missing from limits are not limited.
func New(buckets BucketStore, limits map[models.EndpointClass]models.Limit, opts ...Option) *Service {
	s := &Service{
		buckets: buckets,
		limits:  limits,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIP counts one request from ip against class.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.Result, error) {
	limit, ok := s.limits[class]
	if !ok || limit.Requests <= 0 {
		return &models.Result{Allowed: true}, nil
	}
	res, err := s.buckets.Allow(ctx, bucketKey(class, ip), limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	if s.metrics != nil {
		s.metrics.RecordCheck(string(class), res.Allowed)
	}
	if !res.Allowed {
		s.logger.WarnContext(ctx, "rate limit exceeded", "class", class, "client_ip", ip)
		if s.auditPublisher != nil {
			_ = s.auditPublisher.Emit(ctx, audit.Event{
				Action:    audit.EventRateLimitExceeded,
				Reason:    string(class),
				ClientIP:  ip,
				RequestID: requestcontext.RequestID(ctx),
			})
		}
	}
	return res, nil
}

func bucketKey(class models.EndpointClass, ip string) string {
	return keyPrefixIP + ":" + string(class) + ":" + ip
}
