package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/storefront/ecommerce-api/internal/api"
	"github.com/storefront/ecommerce-api/internal/api/handler"
	"github.com/storefront/ecommerce-api/internal/core/ports"
	"github.com/storefront/ecommerce-api/internal/core/service"
	"github.com/storefront/ecommerce-api/internal/infrastructure/config"
	"github.com/storefront/ecommerce-api/internal/infrastructure/db/mongo"
	"github.com/storefront/ecommerce-api/internal/infrastructure/db/postgres"
	"github.com/storefront/ecommerce-api/internal/infrastructure/db/redis"
	"github.com/storefront/ecommerce-api/internal/infrastructure/queue"
	"github.com/storefront/ecommerce-api/internal/infrastructure/storage"
	"github.com/storefront/ecommerce-api/pkg/logger"
)

const (
	serviceName     = "storefront"
	shutdownTimeout = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Connect to the configured store, seed the admin account and serve
the HTTP API until SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

// stores groups the repositories of the selected driver.
type stores struct {
	users    ports.AuthRepository
	products ports.ProductRepository
	events   ports.AuthEventRepository
	checks   []handler.DependencyCheck
	close    func()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("store unavailable")
		return err
	}
	defer st.close()

	images, err := openImageStorage(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Upload.Backend).Msg("image storage unavailable")
		return err
	}

	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	audit := queue.NewDispatcher(cfg.Audit.Workers, st.events, logger.Named("audit"))
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	audit.Start(auditCtx)
	defer func() {
		stopAudit()
		audit.Wait()
	}()

	authOpts := []service.AuthOption{service.WithEventRecorder(audit)}
	checks := st.checks

	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redisConfig(cfg))
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
		} else {
			defer rdb.Close()
			authOpts = append(authOpts, service.WithLoginLimiter(
				redis.NewLoginLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow),
			))
			checks = append(checks, redisCheck(rdb))
		}
	}

	authService := service.NewAuthService(
		st.users,
		service.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		logger.Named("auth"),
		authOpts...,
	)

	created, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminName)
	if err != nil {
		log.Error().Err(err).Msg("admin seed failed")
		return err
	}
	if created {
		log.Info().Str("email", cfg.Auth.AdminEmail).Msg("default admin created")
	}

	productService := service.NewProductService(st.products, images, cfg.Upload.MaxBytes, logger.Named("catalog"))

	e := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		ProductService: productService,
		Tokens:         tokens,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Checks:         checks,
		Logger:         logger.Named("http"),
	})
	if cfg.Upload.Backend == config.UploadLocal {
		e.Static("/uploads", cfg.Upload.Dir)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	log.Info().Msg("shutdown complete")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool, logger.Named("migrate")); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			users:    postgres.NewUserRepository(pool),
			products: postgres.NewProductRepository(pool),
			events:   postgres.NewAuthEventRepository(pool),
			checks:   []handler.DependencyCheck{{Name: "postgres", Ping: pool.Ping}},
			close:    pool.Close,
		}, nil

	default:
		client, db, err := mongo.Connect(ctx, mongoConfig(cfg))
		if err != nil {
			return nil, err
		}
		users := mongo.NewAuthRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			users:    users,
			products: mongo.NewProductRepository(db),
			events:   mongo.NewAuthEventRepository(db),
			checks:   []handler.DependencyCheck{{Name: "mongodb", Ping: mongo.Ping(client)}},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil
	}
}

func openImageStorage(ctx context.Context, cfg *config.Config) (ports.ImageStorage, error) {
	if cfg.Upload.Backend != config.UploadMinio {
		return storage.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.PublicBaseURL)
	}

	client, err := storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewMinioStorage(ctx, client, cfg.Minio.Bucket, cfg.Upload.PublicBaseURL)
}

func redisCheck(rdb *goredis.Client) handler.DependencyCheck {
	return handler.DependencyCheck{
		Name: "redis",
		Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}

func mongoConfig(cfg *config.Config) mongo.Config {
	return mongo.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     serviceName,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		Timeout:     cfg.Mongo.Timeout,
	}
}

func redisConfig(cfg *config.Config) redis.Config {
	return redis.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		ClientName: serviceName,
		Timeout:    cfg.Redis.Timeout,
	}
}
