package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/stockwise/backend-core/internal/adapters/cache"
	eventadapter "github.com/stockwise/backend-core/internal/adapters/events"
	grpcadapter "github.com/stockwise/backend-core/internal/adapters/grpc"
	httpadapter "github.com/stockwise/backend-core/internal/adapters/http"
	"github.com/stockwise/backend-core/internal/adapters/postgres"
	"github.com/stockwise/backend-core/internal/adapters/security"
	"github.com/stockwise/backend-core/internal/application"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping stockwise backend core", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	signer, err := security.NewJWTSigner(cfg.TokenSecret, cfg.TokenIssuer)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token signer: %w", err)
	}

	verifier := security.NewGoogleVerifier(security.GoogleVerifierConfig{
		ClientID:  cfg.GoogleClientID,
		Issuers:   cfg.GoogleIssuers,
		JWKSURL:   cfg.GoogleJWKSURL,
		KeysetTTL: cfg.KeysetTTL,
	}, cacheadapter.NewRedisKeysetStore(redisClient))

	outboxRepo := postgres.NewOutboxRepository(pool)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			Issuer:                        cfg.TokenIssuer,
			AccessTokenTTL:                cfg.AccessTokenTTL,
			RefreshTokenTTL:               cfg.RefreshTokenTTL,
			SignInRateLimitIPThreshold:    cfg.SignInRateLimitIPThreshold,
			SignInRateLimitEmailThreshold: cfg.SignInRateLimitEmailThreshold,
			SignInRateLimitWindow:         cfg.SignInRateLimitWindow,
		},
		Users:     postgres.NewUserRepository(pool),
		Tokens:    postgres.NewAuthTokenRepository(pool),
		Customers: postgres.NewCustomerRepository(pool),
		Ledger:    postgres.NewLoyaltyLedger(pool),
		Outbox:    outboxRepo,
		Limiter:   cacheadapter.NewRedisRateLimitStore(redisClient),
		Verifier:  verifier,
		Signer:    signer,
		Hasher:    security.SHA256RefreshHasher{},
	})

	ready := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	handler := httpadapter.NewHandler(svc, ready)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen grpc: %w", err)
	}

	var publisher interface {
		Publish(ctx context.Context, eventType string, payload []byte) error
	}
	var closePublisher func() error
	if cfg.AMQPURL != "" {
		amqpPublisher := eventadapter.NewAMQPPublisher(cfg.AMQPURL)
		publisher = amqpPublisher
		closePublisher = amqpPublisher.Close
	} else {
		logger.Warn("no AMQP URL configured, outbox events are logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		outboxRepo,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
