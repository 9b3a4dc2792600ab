package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	v1 "github.com/bharatsonwane/team-orbit-sub001/cmd/api/router/v1"
	"github.com/bharatsonwane/team-orbit-sub001/internal/config"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/auth"
	cacheAdapter "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/cache/adapter"
	cacheport "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/cache/port"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/database"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/logger"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/metrics"
	queueAdapter "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/queue/adapter"
	qport "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/queue/port"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/ratelimit"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/realtime"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/tenant"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/task"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	chatAdapter "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/adapter"
	chatrepo "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/controller"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
	userAdapter "github.com/bharatsonwane/team-orbit-sub001/internal/repository/adapter"
	userrepo "github.com/bharatsonwane/team-orbit-sub001/internal/repository/port"
)

const startupTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	resolver := tenant.NewResolver(openSchema(cfg), cfg.PlatformSchema, cfg.TenantSchemaPrefix, logg, m)
	if _, err := resolver.Resolve(ctx, cfg.PlatformSchema); err != nil {
		logg.Fatal("failed to connect to platform database", zap.Error(err))
	}

	hub := realtime.NewHub()
	registry := realtime.NewRegistry(hub, logg, m)

	var (
		redisClient   *redis.Client
		identityCache cacheport.Cache
		limiter       controller.SendLimiter
		queueClient   qport.Client
		worker        *queueAdapter.AsynqServer
	)
	if cfg.RedisEnabled() {
		redisClient, err = cacheAdapter.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logg.Fatal("failed to connect to redis", zap.Error(err))
		}
		identityCache = cacheAdapter.NewRedisCache(redisClient, "team-orbit:")
		limiter = ratelimit.NewSlidingWindow(redisClient, cfg.SendRateLimit, cfg.SendRateWindow, "team-orbit:ratelimit:")

		client, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logg.Fatal("failed to create queue client", zap.Error(err))
		}
		queueClient = client

		worker, err = queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, map[string]int{"chat": 6, "default": 1}, logg)
		if err != nil {
			logg.Fatal("failed to create queue worker", zap.Error(err))
		}
		task.RegisterChannelCreatedTask(worker, registry)
	} else {
		logg.Warn("REDIS_URL not set: identity cache, send rate limit and background queue disabled")
	}

	users := func(h *tenant.Handle) userrepo.UserRepository {
		var repo userrepo.UserRepository = userAdapter.NewPgUserRepository(h.Pool)
		if identityCache != nil {
			repo = userAdapter.NewCachedUserRepository(repo, identityCache, cfg.IdentityCacheTTL, logg)
		}
		return repo
	}

	deps := controller.Deps{
		Repos: func(h *tenant.Handle) chatrepo.ChatRepository {
			return chatAdapter.NewPgChatRepository(h.Pool)
		},
		Auth:             usecase.NewAuthenticateUseCase(auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), resolver, users),
		Registry:         registry,
		Queue:            queueClient,
		Limiter:          limiter,
		Log:              logg,
		Metrics:          m,
		HandshakeTimeout: cfg.HandshakeTimeout,
		InflightTimeout:  cfg.InflightTimeout,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logg))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"connections": registry.Count(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	v1.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logg.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server failed", zap.Error(err))
		}
	}()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	if worker != nil {
		go func() {
			if err := worker.Run(workerCtx); err != nil {
				logg.Error("queue worker stopped", zap.Error(err))
			}
		}()
	}

	// One op so teardown keeps its order; pools close last.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"api": func(ctx context.Context) error {
				logg.Info("graceful shutdown initiated")
				var errs []error
				if err := srv.Shutdown(ctx); err != nil {
					errs = append(errs, fmt.Errorf("http: %w", err))
				}
				registry.Close()

				stopWorker()
				if worker != nil {
					if err := worker.Stop(ctx); err != nil {
						errs = append(errs, fmt.Errorf("worker: %w", err))
					}
				}
				if queueClient != nil {
					if err := queueClient.Close(); err != nil {
						errs = append(errs, fmt.Errorf("queue: %w", err))
					}
				}

				resolver.Close()
				if redisClient != nil {
					if err := redisClient.Close(); err != nil {
						errs = append(errs, fmt.Errorf("redis: %w", err))
					}
				}
				return errors.Join(errs...)
			},
		},
	)

	exitCode := <-wait
	logg.Info("shutdown completed", zap.Int("exit_code", exitCode))
	_ = logg.Sync()
	os.Exit(exitCode)
}

// openSchema opens partition pools and makes sure tenant partitions carry
// the chat tables.
func openSchema(cfg config.Config) tenant.Opener {
	open := database.SchemaOpener(cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	return func(ctx context.Context, schema string) (*pgxpool.Pool, error) {
		pool, err := open(ctx, schema)
		if err != nil || !strings.HasPrefix(schema, cfg.TenantSchemaPrefix) {
			return pool, err
		}
		if err := chatAdapter.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure chat tables in %q: %w", schema, err)
		}
		return pool, nil
	}
}
