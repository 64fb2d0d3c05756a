// Package dependency provides dependency injection for the application.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finance-tracker/ledger/config"
	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/application/usecase/account"
	"github.com/finance-tracker/ledger/internal/application/usecase/auth"
	"github.com/finance-tracker/ledger/internal/application/usecase/carryforward"
	remotesync "github.com/finance-tracker/ledger/internal/application/usecase/remote_sync"
	"github.com/finance-tracker/ledger/internal/infra/db"
	"github.com/finance-tracker/ledger/internal/infra/server/router"
	"github.com/finance-tracker/ledger/internal/infra/store"
	"github.com/finance-tracker/ledger/internal/integration/adapters"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/controller"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/middleware"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
	"github.com/finance-tracker/ledger/internal/integration/remote"
	"github.com/finance-tracker/ledger/internal/integration/worker"
)

// Injector holds all application dependencies.
type Injector struct {
	Config      *config.Config
	Preferences *db.Database
	Bus         *notify.Bus
	Store       *store.Controller
	Initializer *account.Initializer
	Engine      *carryforward.Engine
	Bridge      *remotesync.Bridge
	Router      *router.Router

	SyncRateLimiter    *middleware.RateLimiter
	SyncWorker         *worker.SyncWorker
	CarryForwardWorker *worker.CarryForwardWorker

	eventsClient *redis.Client
	subscriber   *remote.EventSubscriber
}

// NewInjector creates a new dependency injector with all dependencies wired.
// The ledger store is not opened until Start.
func NewInjector(cfg *config.Config) (*Injector, error) {
	prefsDB, err := db.NewSQLiteConnection(cfg.Preferences.Path, cfg.Store.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference store: %w", err)
	}
	if err := prefsDB.AutoMigrate(persistence.PreferenceModels()...); err != nil {
		_ = prefsDB.Close()
		return nil, fmt.Errorf("failed to migrate preference store: %w", err)
	}

	prefs := persistence.NewPreferenceStore(prefsDB.DB(), cfg.CarryForward.DefaultEnabled)
	bus := notify.NewBus()

	replicaFactory, err := newReplicaFactory(cfg)
	if err != nil {
		_ = prefsDB.Close()
		return nil, err
	}

	// Create the store and the services that follow its reloads
	storeController := store.NewController(&cfg.Store, prefs, bus, replicaFactory)
	uow := persistence.NewUnitOfWork(storeController)

	bridge := remotesync.NewBridge(storeController, bus)
	storeController.SetEventSink(bridge)

	initializer := account.NewInitializer(uow, prefs, bus)
	storeController.AddObserver(initializer)

	engine := carryforward.NewEngine(uow, prefs, bus, cfg.CarryForward.SuppressionMonths)

	// Create adapters/services
	tokenService := adapters.NewTokenService(cfg.JWT.Secret, cfg.JWT.SessionExpiry)

	// Create session use cases
	signInUseCase := auth.NewSignInUserUseCase(uow, prefs, tokenService, initializer)
	signOutUseCase := auth.NewSignOutUserUseCase(prefs, initializer)
	deleteProfileUseCase := auth.NewDeleteProfileUseCase(uow, prefs, initializer)

	// Create controllers
	controllers := router.Controllers{
		Health: controller.NewHealthController(func() bool {
			return storeController.Status().Open
		}, storeController.Mode),
		Session:      controller.NewSessionController(signInUseCase, signOutUseCase, deleteProfileUseCase, initializer),
		Account:      controller.NewAccountController(initializer),
		CarryForward: controller.NewCarryForwardController(engine, initializer),
		Sync:         controller.NewSyncController(bridge, storeController),
		Events:       controller.NewEventsController(bus),
	}

	// Create middleware
	syncRateLimiter := middleware.NewRateLimiter(cfg.Sync.RateLimit, cfg.Sync.RateWindow)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	injector := &Injector{
		Config:          cfg,
		Preferences:     prefsDB,
		Bus:             bus,
		Store:           storeController,
		Initializer:     initializer,
		Engine:          engine,
		Bridge:          bridge,
		Router:          router.NewRouter(controllers, syncRateLimiter, authMiddleware),
		SyncRateLimiter: syncRateLimiter,
	}

	if cfg.Sync.WorkerEnabled {
		injector.SyncWorker = worker.NewSyncWorker(bridge, cfg.Sync.Interval)
	}
	if cfg.CarryForward.WorkerEnabled {
		injector.CarryForwardWorker = worker.NewCarryForwardWorker(engine, initializer, bus, worker.CarryForwardWorkerConfig{
			Interval: cfg.CarryForward.Interval,
		})
	}

	if cfg.Remote.Backend == config.RemoteBackendRedis && cfg.Remote.EventsChannel != "" {
		client, err := newRedisClient(&cfg.Redis)
		if err != nil {
			_ = prefsDB.Close()
			return nil, err
		}
		injector.eventsClient = client
		injector.subscriber = remote.NewEventSubscriber(client, cfg.Remote.EventsChannel, bridge)
	}

	return injector, nil
}

// Start opens the ledger store, resolves the current account and starts
// the background workers. Workers stop when ctx is cancelled.
func (i *Injector) Start(ctx context.Context) error {
	if err := i.Store.Open(ctx); err != nil {
		return err
	}

	if _, err := i.Initializer.EnsureInitialized(ctx); err != nil {
		// Resolution is retried on the next request.
		slog.Warn("Initial account resolution failed", "error", err)
	}

	if i.subscriber != nil {
		if err := i.subscriber.Start(ctx); err != nil {
			slog.Warn("Remote event subscriber unavailable", "error", err)
		}
	}
	if i.SyncWorker != nil {
		go i.SyncWorker.Start(ctx)
	}
	if i.CarryForwardWorker != nil {
		go i.CarryForwardWorker.Start(ctx)
	}
	go i.cleanupRateLimiter(ctx)

	return nil
}

func (i *Injector) cleanupRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(i.Config.Sync.RateWindow + time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.SyncRateLimiter.Cleanup()
		}
	}
}

// Close releases the ledger store, the preference store and remote clients.
func (i *Injector) Close(ctx context.Context) error {
	var errs []error
	if err := i.Store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close ledger store: %w", err))
	}
	if i.eventsClient != nil {
		if err := i.eventsClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if err := i.Preferences.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close preference store: %w", err))
	}
	return errors.Join(errs...)
}

// newReplicaFactory returns the constructor for the configured remote
// backend. Each attach gets a fresh client because Detach closes it.
func newReplicaFactory(cfg *config.Config) (adapter.RemoteReplicaFactory, error) {
	switch cfg.Remote.Backend {
	case "":
		return nil, nil
	case config.RemoteBackendRedis:
		return func(context.Context) (adapter.RemoteReplica, error) {
			client, err := newRedisClient(&cfg.Redis)
			if err != nil {
				return nil, err
			}
			return remote.NewRedisReplica(client, cfg.Remote.KeyPrefix), nil
		}, nil
	case config.RemoteBackendPostgres:
		return func(context.Context) (adapter.RemoteReplica, error) {
			return remote.NewSQLReplica("postgres", func(ctx context.Context) (*db.Database, error) {
				return db.NewPostgresConnection(ctx, &cfg.Remote)
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}
}

func newRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts), nil
}
