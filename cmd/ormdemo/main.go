package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/deppfellow/ormdemo/internal/config"
	"github.com/deppfellow/ormdemo/internal/database"
	"github.com/deppfellow/ormdemo/internal/logger"
	"github.com/deppfellow/ormdemo/internal/repository"
	"github.com/deppfellow/ormdemo/internal/server"
	"github.com/deppfellow/ormdemo/internal/service"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var skipMigrate bool

	run := &cobra.Command{
		Use:   "run",
		Short: "Apply migrations and run the demo scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenario(cmd.Context(), skipMigrate)
		},
	}
	run.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations before running")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, svc, err := bootstrap()
			if err != nil {
				return err
			}
			defer svc.Shutdown()
			return database.Migrate(cmd.Context(), &log, cfg)
		},
	}

	root := &cobra.Command{
		Use:           "ormdemo",
		Short:         "Data-access client demo over PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.RunE(cmd, args)
		},
	}
	root.Flags().AddFlagSet(run.Flags())
	root.AddCommand(run, migrate)
	return root
}

// bootstrap loads config and builds the logger. Failures before the logger
// exists go to stderr.
func bootstrap() (*config.Config, zerolog.Logger, *logger.LoggerService, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return nil, zerolog.Nop(), nil, err
	}

	svc, err := logger.NewLoggerService(cfg.Observability)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize New Relic:", err)
		return nil, zerolog.Nop(), nil, err
	}

	return cfg, logger.NewLoggerWithService(cfg.Observability, svc), svc, nil
}

func runScenario(ctx context.Context, skipMigrate bool) error {
	cfg, log, svc, err := bootstrap()
	if err != nil {
		return err
	}

	if !skipMigrate && !cfg.Database.SkipMigrations {
		if err := database.Migrate(ctx, &log, cfg); err != nil {
			log.Error().Err(err).Msg("failed to migrate database")
			svc.Shutdown()
			return err
		}
	}

	srv, err := server.New(ctx, cfg, &log, svc)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		svc.Shutdown()
		return err
	}
	defer func() {
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	client, err := service.NewClient(srv.Gorm, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build client")
		return err
	}

	services := service.NewService(client, repository.NewRepositories(client), os.Stdout, log)
	if _, err := services.Scenario.Run(ctx); err != nil {
		log.Error().Err(err).Msg("scenario failed")
		return err
	}

	log.Info().Msg("scenario finished")
	return nil
}
