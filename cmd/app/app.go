package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vietanh2810/eventhub-api/internal/api"
	"github.com/vietanh2810/eventhub-api/internal/broadcast"
	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/config"
	"github.com/vietanh2810/eventhub-api/internal/db"
	"github.com/vietanh2810/eventhub-api/internal/logger"
	"github.com/vietanh2810/eventhub-api/internal/repository/dao"
	"github.com/vietanh2810/eventhub-api/internal/repository/memory"
)

const (
	configPath       = "./cmd/app/config.yml"
	shutdownTimeout  = 10 * time.Second
	redisPingTimeout = 3 * time.Second
)

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	storage, err := openStorage(conf)
	if err != nil {
		return fmt.Errorf("failed to initialize storage -> %w", err)
	}

	store, closeStore, err := openCacheStore(conf)
	if err != nil {
		return fmt.Errorf("failed to initialize cache -> %w", err)
	}
	defer closeStore()

	c := cache.New(store, cache.TTLsFromConfig(conf.Cache.TTLs))
	err = config.Watch(configPath, func(updated *config.AppConfig, e fsnotify.Event) {
		c.SetTTLs(cache.TTLsFromConfig(updated.Cache.TTLs))
		zap.L().Info("cache ttls reloaded", zap.String("file", e.Name))
	})
	if err != nil {
		return fmt.Errorf("failed to watch config -> %w", err)
	}

	broadcaster := broadcast.New(broadcast.WithSendTimeout(conf.Broadcast.SendTimeout))

	s := api.NewServer(conf, storage, c, broadcaster)

	srv := &http.Server{
		Addr:              ":" + s.Config.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")

	// Streams never finish on their own, so close them before draining.
	broadcaster.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}

	return nil
}

func openStorage(conf *config.AppConfig) (api.Storage, error) {
	if conf.Storage.Driver == config.StorageDriverMemory {
		zap.L().Warn("using in-memory storage, data is lost on restart")
		return api.NewMemoryStorage(memory.NewStore()), nil
	}

	dbURL := os.Getenv("DATABASE_URL")
	var (
		postgresDB *gorm.DB
		err        error
	)
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return api.Storage{}, err
	}

	if err = dao.InitTables(postgresDB); err != nil {
		return api.Storage{}, fmt.Errorf("dao.InitTables -> %w", err)
	}

	return api.NewPostgresStorage(postgresDB), nil
}

func openCacheStore(conf *config.AppConfig) (cache.Store, func(), error) {
	if conf.Cache.Backend != config.CacheBackendRedis {
		store := cache.NewMemoryStore(time.Minute)
		return store, store.Close, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("client.Ping -> %w", err)
	}

	return cache.NewRedisStore(client, conf.Cache.Namespace), func() { _ = client.Close() }, nil
}
