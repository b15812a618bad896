package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"vatfiler/internal/accounts"
	accountsHandler "vatfiler/internal/accounts/handler"
	accountsMetrics "vatfiler/internal/accounts/metrics"
	accountsService "vatfiler/internal/accounts/service"
	"vatfiler/internal/accounts/store/account"
	"vatfiler/internal/accounts/store/session"
	"vatfiler/internal/platform/config"
	"vatfiler/internal/platform/httpserver"
	"vatfiler/internal/platform/logger"
	"vatfiler/internal/platform/metrics"
	"vatfiler/internal/platform/redis"
	rlMetrics "vatfiler/internal/ratelimit/metrics"
	rlMiddleware "vatfiler/internal/ratelimit/middleware"
	rlModels "vatfiler/internal/ratelimit/models"
	rlService "vatfiler/internal/ratelimit/service"
	"vatfiler/internal/ratelimit/store/bucket"
	"vatfiler/internal/registration"
	"vatfiler/internal/registration/adapters"
	registrationHandler "vatfiler/internal/registration/handler"
	registrationMetrics "vatfiler/internal/registration/metrics"
	registrationService "vatfiler/internal/registration/service"
	"vatfiler/internal/registration/store/flow"
	"vatfiler/pkg/platform/audit/publisher"
	auditmemory "vatfiler/pkg/platform/audit/store/memory"
)

const (
	purgeInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
	auditBufferSize = 1024
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, warnings := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	for _, w := range warnings {
		log.Warn("config fallback", "detail", w)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	var (
		flows    registrationService.FlowStore
		sessions accountsService.SessionStore
		buckets  rlService.BucketStore
		purgers  []purger
		health   healthCheck
	)
	if redisClient != nil {
		defer redisClient.Close()
		flows = flow.NewRedis(redisClient.Client, cfg.FlowTTL)
		sessions = session.NewRedis(redisClient.Client)
		buckets = bucket.NewRedis(redisClient.Client)
		health = redisClient.Health
		log.Info("stores backed by redis")
	} else {
		memFlows := flow.NewInMemory(cfg.FlowTTL)
		memSessions := session.NewInMemory()
		memBuckets := bucket.NewInMemory()
		flows, sessions, buckets = memFlows, memSessions, memBuckets
		purgers = append(purgers, memFlows, memSessions, memBuckets)
		log.Info("stores kept in memory")
	}

	auditPublisher := publisher.NewPublisher(auditmemory.NewInMemoryStore(),
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	accountSvc := accounts.NewService(account.NewInMemory(), sessions,
		accountsService.WithLogger(log),
		accountsService.WithAuditPublisher(auditPublisher),
		accountsService.WithMetrics(accountsMetrics.New(reg)),
		accountsService.WithSessionTTL(cfg.SessionTTL),
	)
	flowSvc := registration.NewService(flows, adapters.NewAccountsRegistrar(accountSvc),
		registrationService.WithLogger(log),
		registrationService.WithMetrics(registrationMetrics.New(reg)),
	)

	limits := map[rlModels.EndpointClass]rlModels.Limit{
		rlModels.ClassAuth:  {Requests: cfg.RateLimit.AuthPerMinute, Window: time.Minute},
		rlModels.ClassWrite: {Requests: cfg.RateLimit.WritePerMinute, Window: time.Minute},
	}
	limiter := rlService.New(buckets, limits,
		rlService.WithLogger(log),
		rlService.WithMetrics(rlMetrics.New(reg)),
		rlService.WithAuditPublisher(auditPublisher),
	)
	rateLimit := rlMiddleware.New(limiter, classifyRequest, log,
		rlMiddleware.WithDisabled(cfg.RateLimit.Disabled),
	)

	renderer, err := registration.NewRenderer(cfg.BasePath)
	if err != nil {
		return fmt.Errorf("load views: %w", err)
	}

	router := newRouter(routerDeps{
		logger:    log,
		registry:  reg,
		metrics:   metrics.New(reg),
		basePath:  cfg.BasePath,
		health:    health,
		rateLimit: rateLimit.Handler,
		registration: registration.NewHandler(flowSvc, renderer, log, registrationHandler.Config{
			BasePath:      cfg.BasePath,
			StaticDir:     cfg.StaticDir,
			SecureCookies: cfg.SecureCookies,
		}),
		accounts: accounts.NewHandler(accountSvc, renderer, log, accountsHandler.Config{
			SecureCookies: cfg.SecureCookies,
			HomePath:      cfg.BasePath,
		}),
	})

	log.Info("starting vatfiler", cfg.LogAttrs()...)
	return serve(ctx, httpserver.New(cfg.Addr, router), purgers, purgeInterval, log)
}

// serve runs srv and the purge loops until ctx is cancelled or the listener
// fails, then shuts the server down and waits for every loop to return.
func serve(ctx context.Context, srv *http.Server, purgers []purger, every time.Duration, log *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range purgers {
		g.Go(func() error {
			purgeLoop(gctx, p, every, log)
			return nil
		})
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// purger is implemented by the in-memory stores. Redis expires keys itself.
type purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

func purgeLoop(ctx context.Context, p purger, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.DebugContext(ctx, "purged expired entries", "count", n)
			}
		}
	}
}
