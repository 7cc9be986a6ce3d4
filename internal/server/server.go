// Package server defines the core Server struct that composes the app's main dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - database pool and the GORM handle over it
//
// It provides constructors and shutdown logic so a run can release everything cleanly.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/ormdemo/internal/config"
	"github.com/deppfellow/ormdemo/internal/database"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	loggerPkg "github.com/deppfellow/ormdemo/internal/logger"
)

// Server is the application container that holds shared resources.
type Server struct {
	// Config holds all environment/config values for the app.
	Config *config.Config

	// Logger is the application's main structured logger.
	Logger *zerolog.Logger

	// LoggerService optionally holds the New Relic application instance.
	// If New Relic is disabled, this may exist but contain nil nrApp.
	LoggerService *loggerPkg.LoggerService

	// DB holds the PostgreSQL pool wrapper.
	DB *database.Database

	// Gorm runs on DB's pool through the postgres dialector.
	Gorm *gorm.DB
}

// New constructs a Server and initializes core dependencies.
//
// The pool is pinged before returning. GORM statement logging follows
// cfg.Client.Log and the slow query threshold from observability.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	db, err := database.New(ctx, cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gl := loggerPkg.NewGormLogger(*logger, GormOptions(cfg))
	gdb, err := db.OpenGorm(gl)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Gorm:          gdb,
	}, nil
}

// GormOptions derives the GORM logger settings from cfg.
func GormOptions(cfg *config.Config) loggerPkg.GormOptions {
	opts := loggerPkg.GormOptions{
		Queries: cfg.Client.LogsQueries(),
		Errors:  cfg.Client.LogsErrors(),
	}
	if cfg.Observability != nil {
		opts.SlowThreshold = cfg.Observability.Logging.SlowQueryThreshold
	}
	return opts
}

// Shutdown releases the database pool and flushes New Relic.
func (s *Server) Shutdown() error {
	var err error
	if s.DB != nil {
		if cerr := s.DB.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database connection: %w", cerr))
		}
	}
	if s.LoggerService != nil {
		s.LoggerService.Shutdown()
	}
	return err
}
