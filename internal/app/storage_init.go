package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/storage/memory"
	"github.com/vladislavdragonenkov/r4c/internal/storage/postgres"
)

// runtimeDependencies хранит репозитории выбранного хранилища.
type runtimeDependencies struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	robots    domain.RobotRepository
	outbox    domain.OutboxRepository
	// store заполнен только для postgres.
	store *postgres.Store
}

func (d *runtimeDependencies) close() {
	if d != nil && d.store != nil {
		d.store.Close()
	}
}

// initRuntimeDependencies открывает хранилище согласно cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		outbox := memory.NewOutboxRepository()
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			customers: memory.NewCustomerRepository(),
			orders:    memory.NewOrderRepository(outbox),
			robots:    memory.NewRobotRepository(),
			outbox:    outbox,
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres dsn is required for postgres storage")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		logger.Info("using postgres storage")
		return &runtimeDependencies{
			customers: postgres.NewCustomerRepository(store),
			orders:    postgres.NewOrderRepository(store),
			robots:    postgres.NewRobotRepository(store),
			outbox:    postgres.NewOutboxRepository(store),
			store:     store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
