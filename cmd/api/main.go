package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ecoplate-api/internal/cache"
	"ecoplate-api/internal/config"
	"ecoplate-api/internal/events"
	"ecoplate-api/internal/handler"
	"ecoplate-api/internal/keylock"
	"ecoplate-api/internal/logger"
	"ecoplate-api/internal/metrics"
	"ecoplate-api/internal/ratelimit"
	"ecoplate-api/internal/repository"
	"ecoplate-api/internal/router"
	"ecoplate-api/internal/service"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.New(logger.Config{
		Service:     cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting ecoplate api", zap.String("env", cfg.App.Environment))

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// Redis is optional: without it the cache and rate limiter stay in-process.
	var redisClient *redis.Client
	if cfg.Cache.Type == "redis" {
		redisClient, err = cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			log.Info("redis client initialized", zap.String("addr", cfg.Cache.RedisAddress()))
		}
	}

	var dropCache cache.Cache
	if redisClient != nil {
		dropCache = cache.NewRedisCache(redisClient, cfg.Cache.RedisPrefix)
	} else {
		dropCache = cache.NewMemoryCache(time.Minute)
	}
	defer dropCache.Close()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = newLimiter(cfg, redisClient)
		if err != nil {
			return err
		}
	}

	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.Broker.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, log)
		if err != nil {
			log.Warn("rabbitmq unavailable, logging events instead", zap.Error(err))
		} else {
			publisher = amqpPub
			log.Info("rabbitmq publisher initialized", zap.String("exchange", cfg.Broker.Exchange))
		}
	}
	defer publisher.Close()

	var attemptLog repository.AttemptLog = repository.NewMemoryAttemptLog(cfg.Audit.MemoryMax)
	if cfg.Audit.MongoURI != "" {
		mongoLog, err := repository.NewMongoDBAttemptLog(ctx, cfg.Audit.MongoURI, cfg.Audit.MongoDatabase, cfg.Audit.MongoCollection)
		if err != nil {
			log.Warn("mongodb unavailable, keeping redemption log in memory", zap.Error(err))
		} else {
			attemptLog = mongoLog
			log.Info("mongodb redemption log initialized", zap.String("collection", cfg.Audit.MongoCollection))
		}
	}
	defer attemptLog.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := service.New(service.Deps{
		Store:      store,
		Cache:      dropCache,
		Publisher:  publisher,
		AttemptLog: attemptLog,
		Metrics:    m,
		Locks:      keylock.New(),
		Log:        log,
		Location:   loc,
		CacheTTL:   cfg.Cache.TTL,
	})

	probes := []handler.Probe{{Name: store.Dialect(), Check: store.Ping}}
	if redisClient != nil {
		probes = append(probes, handler.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	adminKeys := cfg.Admin.ValidKeys()
	if len(adminKeys) == 0 {
		log.Warn("ADMIN_KEYS is empty, admin and redeem endpoints are closed")
	}

	r := router.New(router.Config{
		Handler:            handler.New(cfg.App.Name, cfg.App.Version, probes...),
		DropHandler:        handler.NewDropHandler(svc, log),
		ReservationHandler: handler.NewReservationHandler(svc, log),
		UserHandler:        handler.NewUserHandler(svc, log),
		RedeemHandler:      handler.NewRedeemHandler(svc, log),
		AdminHandler:       handler.NewAdminHandler(svc, log),
		AdminKeys:          adminKeys,
		RedeemLimiter:      limiter,
		CORSOrigins:        cfg.Server.CORSOrigins,
		Metrics:            m,
		Gatherer:           reg,
		Log:                log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repository.SQLStore, error) {
	sc := cfg.Store
	opts := repository.Options{
		Dialect:         sc.Type,
		MaxOpenConns:    sc.MaxOpenConns,
		MaxIdleConns:    sc.MaxIdleConns,
		ConnMaxLifetime: sc.ConnMaxLifetime,
	}
	switch sc.Type {
	case repository.DialectPostgres:
		opts.DSN = repository.PostgresDSN(sc.Host, sc.DefaultPort(), sc.User, sc.Password, sc.Name, sc.SSLMode)
	case repository.DialectMySQL:
		opts.DSN = repository.MySQLDSN(sc.Host, sc.DefaultPort(), sc.User, sc.Password, sc.Name)
	default:
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, err
		}
		opts.Path = sc.Path
	}

	store, err := repository.NewSQLStore(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newLimiter(cfg *config.Config, client *redis.Client) (ratelimit.Limiter, error) {
	rc := ratelimit.Config{Rate: cfg.RateLimit.Rate, Burst: cfg.RateLimit.Capacity}
	if client != nil {
		return ratelimit.NewRedis(client, cfg.Cache.RedisPrefix, rc)
	}
	return ratelimit.NewMemory(rc)
}
