package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"organizer-team/backend/internal/config"
	"organizer-team/backend/internal/db"
	membershiprepo "organizer-team/backend/internal/membership/repository"
	membershipservice "organizer-team/backend/internal/membership/service"
	"organizer-team/backend/internal/notification"
	organizerrepo "organizer-team/backend/internal/organizer/repository"
	"organizer-team/backend/internal/policy/engine"
	policyrepo "organizer-team/backend/internal/policy/repository"
	"organizer-team/backend/internal/security"
	"organizer-team/backend/internal/server"
	"organizer-team/backend/internal/telemetry/logging"
	telemetryotel "organizer-team/backend/internal/telemetry/otel"
	userrepo "organizer-team/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()

	conn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	})
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer conn.Close()

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt keys", zap.Error(err))
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	memberships := membershiprepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)
	organizers := organizerrepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)
	evaluator := engine.NewOPAEvaluator(policies, logger)

	sinks, closeSinks := buildSinks(ctx, cfg, providers, logger)
	defer closeSinks()
	notifier := notification.NewAsync(sinks, cfg.NotifyTimeoutDuration(), logger)

	svc := membershipservice.NewService(memberships, users, organizers, security.NewHasher(cfg.BcryptCost),
		membershipservice.WithNotifier(notifier),
		membershipservice.WithLogger(logger),
		membershipservice.WithTracerProvider(providers.TracerProvider),
		membershipservice.WithMeterProvider(providers.MeterProvider),
	)
	authorizer := membershipservice.NewAuthorizer(memberships, users, organizers, evaluator, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	s := server.NewGRPCServer(tokens, logger)
	server.RegisterServices(s, server.Deps{
		Membership:          svc,
		Authorizer:          authorizer,
		PolicyRepo:          policies,
		PolicyValidator:     evaluator,
		HealthPinger:        conn,
		HealthPolicyChecker: evaluator,
		Logger:              logger,
	})

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := s.Serve(lis); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server")
	s.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := notifier.Drain(shutdownCtx); err != nil {
		logger.Warn("notifications not drained", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
	logger.Info("gRPC server stopped")
}

// buildSinks fans notifications out to every configured sink. The OTel log sink is always on.
func buildSinks(ctx context.Context, cfg *config.Config, providers *telemetryotel.Providers, logger *zap.Logger) (notification.Dispatcher, func()) {
	sinks := notification.Multi{notification.NewLogSink(providers.LoggerProvider)}
	var closers []func() error

	if brokers := cfg.NotifyKafkaBrokersList(); len(brokers) > 0 {
		k, err := notification.NewKafkaSink(brokers, cfg.NotifyKafkaTopic)
		if err != nil {
			logger.Fatal("kafka sink", zap.Error(err))
		}
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
		logger.Info("notification sink enabled", zap.String("sink", "kafka"), zap.Strings("brokers", brokers))
	}

	if cfg.NotifyRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.NotifyRedisAddr,
			Password: cfg.NotifyRedisPassword,
			DB:       cfg.NotifyRedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis sink", zap.Error(err))
		}
		sinks = append(sinks, notification.NewRedisSink(rdb, cfg.NotifyRedisQueue))
		closers = append(closers, rdb.Close)
		logger.Info("notification sink enabled", zap.String("sink", "redis"), zap.String("addr", cfg.NotifyRedisAddr))
	}

	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close notification sink", zap.Error(err))
			}
		}
	}
}
