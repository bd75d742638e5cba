package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"refledger/internal/jwt_token"
	"refledger/internal/ledger/store"
	"refledger/internal/ledger/store/deletion"
	userstore "refledger/internal/ledger/store/user"
	"refledger/internal/lifecycle"
	"refledger/internal/lifecycle/adapters/fake"
	"refledger/internal/lifecycle/adapters/httprail"
	lifecyclehandler "refledger/internal/lifecycle/handler"
	lifecyclemetrics "refledger/internal/lifecycle/metrics"
	"refledger/internal/lifecycle/ports"
	"refledger/internal/params"
	paramshandler "refledger/internal/params/handler"
	"refledger/internal/platform/config"
	"refledger/internal/platform/httpserver"
	"refledger/internal/platform/logger"
	"refledger/internal/platform/postgres"
	platformredis "refledger/internal/platform/redis"
	"refledger/internal/reward"
	rewardmetrics "refledger/internal/reward/metrics"
	httptransport "refledger/internal/transport/http"
	"refledger/pkg/platform/audit"
	"refledger/pkg/platform/audit/publisher"
	kafkasink "refledger/pkg/platform/audit/publishers/kafka"
	auditmemory "refledger/pkg/platform/audit/store/memory"
	auditpostgres "refledger/pkg/platform/audit/store/postgres"
)

// main wires the dependency graph from configuration and runs the HTTP
// server until a termination signal. Business logic lives in the internal
// services; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	health := map[string]httptransport.HealthChecker{}

	// Durable stores when Postgres is configured, in-memory otherwise.
	var (
		users        store.UserStore
		auditPrimary audit.Store
		db           *sql.DB
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, userstore.Schema, auditpostgres.Schema); err != nil {
			return err
		}
		users = userstore.NewPostgres(db)
		auditPrimary = auditpostgres.New(db)
		health["postgres"] = db.PingContext
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		users = userstore.New()
		auditPrimary = auditmemory.NewInMemoryStore()
	}

	var deletions deletion.Store
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		deletions = deletion.NewRedisStore(redisClient.Client, params.MaxDeletionCooldown)
		health["redis"] = redisClient.Health
	} else {
		deletions = deletion.NewInMemoryStore()
	}

	// Audit pipeline: primary store plus an optional Kafka mirror, behind
	// one publisher.
	var sinks []audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkasink.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
	}
	fanout := audit.NewFanout(auditPrimary, func(err error) {
		log.Warn("audit sink append failed", "error", err)
	}, sinks...)

	opts := []publisher.Option{publisher.WithLogger(log)}
	if cfg.AuditBuffer > 0 {
		opts = append(opts, publisher.WithAsyncBuffer(cfg.AuditBuffer))
	}
	events := publisher.NewPublisher(fanout, opts...)
	defer events.Close()

	paramStore := params.NewStore(params.Defaults(), events)

	// External rails, or deterministic fakes when unconfigured so the
	// binary stays runnable in development.
	var payments ports.PaymentGateway
	if cfg.PaymentRailURL != "" {
		payments = httprail.NewPaymentClient(cfg.PaymentRailURL)
	} else {
		log.Warn("no payment rail configured, using in-process fake")
		payments = fake.NewPaymentRail(1_000_000)
	}
	var authority ports.SubscriptionAuthority
	if cfg.SubscriptionAuthorityURL != "" {
		authority = httprail.NewSubscriptionClient(cfg.SubscriptionAuthorityURL)
	} else {
		log.Warn("no subscription authority configured, using in-process fake")
		authority = fake.NewSubscriptionAuthority(paramStore.Snapshot().SubscriptionDuration)
	}

	engine := reward.NewEngine(users, payments, events, rewardmetrics.New(prometheus.DefaultRegisterer), log)
	service := lifecycle.NewService(
		users,
		deletions,
		paramStore,
		payments,
		authority,
		engine,
		events,
		lifecyclemetrics.New(prometheus.DefaultRegisterer),
		log,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "refledger")

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Lifecycle:      lifecyclehandler.New(service, log),
		Admin:          paramshandler.New(paramStore, service, log),
		Auth:           jwttoken.NewJWTServiceAdapter(jwtService),
		AdminTokenHash: cfg.AdminTokenHash,
		RateLimit:      cfg.RateLimit,
		Health:         health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
