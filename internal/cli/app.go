package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fjod/storefront-sync/internal/config"
	"github.com/fjod/storefront-sync/internal/engine"
	"github.com/fjod/storefront-sync/internal/gateway"
	gmongo "github.com/fjod/storefront-sync/internal/gateway/mongo"
	"github.com/fjod/storefront-sync/internal/gateway/postgres"
	"github.com/fjod/storefront-sync/internal/localstore"
	"github.com/fjod/storefront-sync/internal/notify"
	"github.com/redis/go-redis/v9"
)

// App is a mounted engine with its backends.
type App struct {
	Engine  *engine.Engine
	Notices *engine.NoticeQueue
	closers []func() error
	settle  time.Duration
	remote  gateway.RemoteStore
}

// OpenApp connects the configured backends and mounts the engine.
func OpenApp(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Notices: engine.NewNoticeQueue(100), settle: cfg.RemoteTimeout}
	ok := false
	defer func() {
		if !ok {
			app.closeBackends()
		}
	}()

	var redisClient *redis.Client
	if cfg.LocalBackend == config.LocalRedis || cfg.Notifier == config.NotifierRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		app.closers = append(app.closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Printf("Redis ping succeeded")
	}

	local, err := app.openLocal(cfg, redisClient)
	if err != nil {
		return nil, err
	}
	notifier := app.openNotifier(cfg, redisClient)
	remote, err := app.openRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.remote = remote
	guarded := gateway.NewBreaker(remote, gateway.BreakerSettings{Name: cfg.RemoteBackend})
	app.Engine = engine.New(local, gateway.NewPublishing(guarded, notifier), notifier, app.Notices, engine.Config{
		RemoteTimeout:            cfg.RemoteTimeout,
		RequireLoginForFavorites: !cfg.GuestFavorites,
	})
	if err := app.Engine.Mount(ctx); err != nil {
		log.Printf("mount: %v", err)
	}
	ok = true
	return app, nil
}

func (a *App) openLocal(cfg config.Config, redisClient *redis.Client) (localstore.Store, error) {
	switch cfg.LocalBackend {
	case config.LocalSQLite:
		store, err := localstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.LocalRedis:
		return localstore.NewRedisStore(redisClient, cfg.SnapshotTTL), nil
	default:
		return localstore.NewMemoryStore(), nil
	}
}

func (a *App) openNotifier(cfg config.Config, redisClient *redis.Client) notify.Notifier {
	switch cfg.Notifier {
	case config.NotifierRedis:
		return notify.NewRedisNotifier(redisClient)
	case config.NotifierKafka:
		k := notify.NewKafkaNotifier(cfg.KafkaBrokers...)
		a.closers = append(a.closers, k.Close)
		return k
	default:
		return notify.NewHub()
	}
}

func (a *App) openRemote(ctx context.Context, cfg config.Config) (gateway.RemoteStore, error) {
	switch cfg.RemoteBackend {
	case config.RemoteMongo:
		db, err := gmongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.RemoteTimeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return db.Client().Disconnect(context.Background()) })
		store := gmongo.NewStore(db)
		if err := store.CreateIndexes(ctx); err != nil {
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
		return store, nil
	case config.RemotePostgres:
		creds := postgres.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
		}
		store, err := postgres.Open(creds.DSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.RunMigrations(); err != nil {
			return nil, err
		}
		log.Printf("Connected to Postgres at %s:%d", creds.Host, creds.Port)
		return store, nil
	default:
		return gateway.NewMemoryStore(), nil
	}
}

// Close gives pending remote writes up to the remote timeout to settle,
// abandons whatever is still in flight and releases the backends.
func (a *App) Close() {
	if a.Engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.settle)
		if err := a.Engine.Wait(ctx); err != nil {
			log.Printf("engine still busy on close: %v", err)
		}
		cancel()
		if err := a.Engine.Close(); err != nil {
			log.Printf("engine close: %v", err)
		}
	}
	a.closeBackends()
}

func (a *App) closeBackends() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close backend: %v", err)
		}
	}
	a.closers = nil
}
