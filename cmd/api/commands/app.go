package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskmaster/daybook/internal/adapters/local"
	"github.com/taskmaster/daybook/internal/adapters/markdown"
	"github.com/taskmaster/daybook/internal/adapters/repository"
	"github.com/taskmaster/daybook/internal/application/services"
	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/config"
	"github.com/taskmaster/daybook/internal/infrastructure/crypto"
	"github.com/taskmaster/daybook/internal/infrastructure/database"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/infrastructure/metrics"
	"github.com/taskmaster/daybook/internal/infrastructure/server"
	"github.com/taskmaster/daybook/internal/ports"
)

// app holds everything a command needs, wired from the configuration
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	kv      ports.KeyValueStore
	db      *database.DB
	mongo   *database.Mongo
	metrics *metrics.Metrics

	session  *services.Session
	sync     *services.SyncService
	tasks    *services.TaskService
	transfer *services.TransferService
	auth     *services.AuthService
	accounts *services.AccountService

	today string
}

// loadConfig loads configuration and a logger. CLI commands that print
// documents keep stdout for themselves.
func loadConfig(quiet bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := cfg.Logger
	if quiet && logCfg.Output != "file" {
		logCfg.Output = "stderr"
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, appLogger, nil
}

// newApp opens the stores, builds the services and loads the session for today
func newApp(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: appLogger, metrics: metrics.New()}
	if err := a.init(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	appLogger := a.log

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}
	a.today = entities.Today(loc)

	codec, err := crypto.NewCodec(cfg.Security.EncryptionSecret, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create codec: %w", err)
	}

	a.kv, err = local.OpenKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	store := local.NewStore(a.kv, codec, appLogger)

	if cfg.AccountsEnabled() {
		a.db, err = database.New(ctx, cfg.Database)
		if err != nil {
			return err
		}
	}

	remote, err := a.openRemote(ctx, codec)
	if err != nil {
		return err
	}

	a.session = services.NewSession()
	a.sync = services.NewSyncService(a.session, store, remote, cfg.Remote.Timeout, a.metrics, appLogger)
	a.tasks = services.NewTaskService(a.session, a.sync, appLogger)
	a.transfer = services.NewTransferService(a.session, a.sync, markdown.Codec{}, a.metrics, appLogger)

	if a.db != nil {
		profiles := repository.NewProfileRepository(a.db.DB)
		identities := repository.NewIdentityRepository(a.db.DB)
		a.auth = services.NewAuthService(profiles, identities, cfg.JWT, cfg.Security.BcryptCost, appLogger)
		a.accounts = services.NewAccountService(a.sync, profiles, identities, appLogger)
	}

	if err := a.sync.Load(ctx, a.today); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	return nil
}

// openRemote returns nil when no remote store is configured
func (a *app) openRemote(ctx context.Context, codec *crypto.Codec) (ports.RemoteTaskRepository, error) {
	var rows ports.TaskRowStore

	switch a.cfg.Remote.Driver {
	case config.RemoteDriverPostgres:
		rows = repository.NewTaskRowRepository(a.db.DB)

	case config.RemoteDriverMongo:
		m, err := database.NewMongo(ctx, a.cfg.Mongo)
		if err != nil {
			return nil, err
		}
		a.mongo = m
		mongoRows := repository.NewMongoTaskRowRepository(m.Database)
		if err := mongoRows.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		rows = mongoRows

	default:
		return nil, nil
	}

	return repository.NewRemoteTaskRepository(rows, codec, a.cfg.Remote.BatchSize, a.log), nil
}

func (a *app) dependencies() server.Dependencies {
	return server.Dependencies{
		Tasks:    a.tasks,
		Transfer: a.transfer,
		Sync:     a.sync,
		Auth:     a.auth,
		Accounts: a.accounts,
		DB:       a.db,
		Mongo:    a.mongo,
		Metrics:  a.metrics,
	}
}

// Close waits for pending pushes and releases every connection
func (a *app) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if a.sync != nil {
		errs = append(errs, a.sync.Close(ctx))
	}
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Close(ctx))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
