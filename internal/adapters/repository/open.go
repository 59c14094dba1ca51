package repository

import (
	"context"
	"fmt"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/database"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// Open connects to the backend named by cfg.URL and returns its task store
func Open(ctx context.Context, cfg config.DatabaseConfig, appLogger *logger.Logger) (ports.TaskRepository, error) {
	driver, err := database.DetectDriver(cfg.URL)
	if err != nil {
		return nil, err
	}

	appLogger.Infow("Opening task store", "driver", driver)

	switch driver {
	case database.DriverMongo:
		db, err := database.NewMongo(cfg)
		if err != nil {
			return nil, err
		}
		repo, err := NewMongoTaskRepository(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return repo, nil

	case database.DriverPostgres:
		db, err := database.NewPostgres(cfg)
		if err != nil {
			return nil, err
		}
		migrator, err := database.NewMigrator(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		applied, err := migrator.Up()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if applied {
			appLogger.Infow("Applied database migrations")
		}
		return NewPostgresTaskRepository(db), nil

	case database.DriverSQLite:
		db, err := database.NewSQLite(cfg)
		if err != nil {
			return nil, err
		}
		repo, err := NewSQLiteTaskRepository(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return repo, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
