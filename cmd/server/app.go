package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mnemo-app/mnemo/internal/config"
	"github.com/mnemo-app/mnemo/internal/domain/srs"
	"github.com/mnemo-app/mnemo/internal/platform/logger"
	"github.com/mnemo-app/mnemo/internal/platform/postgres"
	"github.com/mnemo-app/mnemo/internal/service/health"
	"github.com/mnemo-app/mnemo/internal/service/stats"
)

// application bundles the long-lived dependencies of the server process.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	synchronizer health.Synchronizer
	stats        *stats.Service
}

// initializeApp loads configuration, sets up logging, connects to the
// database, applies pending migrations, and constructs the services.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		_ = db.Close()
		return nil, err
	}

	model, err := buildMemoryModel(cfg.SRS)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cardStore := postgres.NewPostgresCardStore(db, appLogger)
	deckStore := postgres.NewPostgresDeckStore(db, appLogger)
	accountStore := postgres.NewPostgresAccountStore(db, appLogger)
	logStore := postgres.NewPostgresReviewLogStore(db, appLogger)

	app := &application{
		config: cfg,
		logger: appLogger,
		db:     db,
		synchronizer: health.NewSynchronizer(
			db,
			cardStore,
			deckStore,
			accountStore,
			logStore,
			model,
			appLogger,
		),
		stats: stats.NewService(cardStore, logStore, accountStore, appLogger),
	}
	return app, nil
}

// buildMemoryModel constructs the scheduler, applying any configured
// overrides on top of the model defaults.
func buildMemoryModel(cfg config.SRSConfig) (srs.MemoryModel, error) {
	params := srs.NewDefaultParams()
	if cfg.DesiredRetention > 0 {
		params.DesiredRetention = cfg.DesiredRetention
	}
	if cfg.MaximumIntervalDays > 0 {
		params.MaximumInterval = cfg.MaximumIntervalDays
	}

	model, err := srs.NewModelWithParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory model: %w", err)
	}
	return model, nil
}

// close releases the application's resources.
func (app *application) close() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}

// run builds the router and serves HTTP until a shutdown signal arrives.
func (app *application) run() error {
	return app.startHTTPServer(app.setupRouter())
}
