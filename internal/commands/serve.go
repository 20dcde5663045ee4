package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/api"
	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/grammar"
	"github.com/vnmchuo/grammar-gateway/internal/metrics"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
	"github.com/vnmchuo/grammar-gateway/internal/telemetry"
	"github.com/vnmchuo/grammar-gateway/internal/transliterate"
	"github.com/vnmchuo/grammar-gateway/internal/usage"
	"github.com/vnmchuo/grammar-gateway/pkg/ratelimit"
)

const serviceName = "grammarlab"

func (a *app) serveCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API on PORT (default 8080).

POSTGRES_DSN enables persistent usage logs; without it usage is kept in memory.
REDIS_ADDR enables the shared rate limiter and the transliteration cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func (a *app) serve() error {
	cfg, logger := a.cfg, a.logger
	defer func() { _ = logger.Sync() }()

	shutdownTracer, err := telemetry.InitTracer(serviceName, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer shutdownTracer()

	ctx := context.Background()

	var store usage.Store = usage.NewMemoryStore()
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
		pg := usage.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create usage schema: %w", err)
		}
		store = pg
		logger.Info("postgres connected")
	} else {
		logger.Info("POSTGRES_DSN not set, keeping usage logs in memory")
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPM)
	translitOpts := []transliterate.Option{
		transliterate.WithBaseURL(cfg.TransliterateURL),
		transliterate.WithLogger(logger),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		limiter = ratelimit.NewLimiter(rdb, cfg.RateLimitRPM)
		translitOpts = append(translitOpts,
			transliterate.WithCache(transliterate.NewRedisCache(rdb, cfg.TransliterateCacheTTL, logger)))
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}

	tracer := otel.GetTracerProvider().Tracer(serviceName)
	gw := gateway.NewDefault(gatewaySettings(cfg), gateway.WithLogger(logger), gateway.WithTracer(tracer))

	defaultProvider, err := provider.ParseSelector(cfg.DefaultProvider)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	handler := api.NewHandler(api.Deps{
		Generator:       gw,
		Service:         grammar.NewService(gw, logger),
		Transliterator:  transliterate.New(translitOpts...),
		Usage:           store,
		Limiter:         limiter,
		Metrics:         metrics.NewCollector(serviceName, logger),
		Tracer:          tracer,
		Logger:          logger,
		DefaultProvider: defaultProvider,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("grammarlab starting",
			zap.String("port", cfg.Port),
			zap.String("default_provider", string(defaultProvider)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
