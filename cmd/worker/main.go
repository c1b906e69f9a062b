package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/smallbiznis/linkedroles-worker/internal/adapter/cache"
	oauthadapter "github.com/smallbiznis/linkedroles-worker/internal/adapter/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/config"
	"github.com/smallbiznis/linkedroles-worker/internal/cookie"
	httptransport "github.com/smallbiznis/linkedroles-worker/internal/http"
	"github.com/smallbiznis/linkedroles-worker/internal/http/handler"
	"github.com/smallbiznis/linkedroles-worker/internal/interaction"
	apimiddleware "github.com/smallbiznis/linkedroles-worker/internal/middleware"
	"github.com/smallbiznis/linkedroles-worker/internal/repository"
	"github.com/smallbiznis/linkedroles-worker/internal/server"
	"github.com/smallbiznis/linkedroles-worker/internal/service/linkedrole"
	"github.com/smallbiznis/linkedroles-worker/internal/signature"
	"github.com/smallbiznis/linkedroles-worker/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newTokenStore,
			newProviderClient,
			newVerifier,
			newStateSigner,
			newDispatcher,
			newMetadataSource,
			newRateLimiter,
			linkedrole.NewService,
			handler.NewInteractionHandler,
			newLinkedRoleHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newTokenStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (repository.TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStorePostgres:
		pool, err := newPGXPool(lc, cfg)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresTokenRepo(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure token schema: %w", err)
		}
		logger.Info("token store ready", zap.String("backend", config.TokenStorePostgres))
		return repo, nil
	default:
		client, err := newRedisClient(lc, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("token store ready", zap.String("backend", config.TokenStoreRedis), zap.String("addr", cfg.RedisAddr))
		return cacheadapter.NewRedisTokenStore(client), nil
	}
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newProviderClient(cfg config.Config) oauthadapter.ProviderClient {
	client := &http.Client{
		Timeout:   cfg.ProviderTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return oauthadapter.NewHTTPProviderClient(client, oauthadapter.SettingsFromConfig(cfg))
}

func newVerifier(cfg config.Config) (*signature.Verifier, error) {
	return signature.NewVerifier(cfg.PublicKey)
}

func newStateSigner(cfg config.Config) *cookie.StateSigner {
	return cookie.NewStateSigner(cfg.CookieSecret)
}

func newDispatcher(cfg config.Config, logger *zap.Logger) *interaction.Dispatcher {
	return interaction.NewDispatcher(interaction.Options{
		ReviveRequiredRoleID: cfg.ReviveRequiredRoleID,
		ReviveTargetRoleID:   cfg.ReviveTargetRoleID,
		ReviveContact:        cfg.ReviveContact,
	}, logger.Named("interaction"))
}

func newMetadataSource(cfg config.Config) linkedrole.MetadataSource {
	return linkedrole.StaticMetadata{
		PlatformName: cfg.PlatformName,
		Metadata:     cfg.RoleConnectionMeta,
	}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newLinkedRoleHandler(svc linkedrole.Service, signer *cookie.StateSigner, cfg config.Config, logger *zap.Logger) *handler.LinkedRoleHandler {
	return handler.NewLinkedRoleHandler(svc, signer, cfg.ApplicationID, cfg.SecureCookies(), logger.Named("linked_role"))
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				logger.Info("http server listening", zap.String("addr", addr))
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
