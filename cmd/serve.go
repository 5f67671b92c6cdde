package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KromaEnergia/api-marketplace/internal/jobs"
	"github.com/KromaEnergia/api-marketplace/internal/ratelimit"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/server"
	"github.com/KromaEnergia/api-marketplace/internal/utils/db"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := zap.L()

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(database) }()

		if serveMigrate {
			if err := db.Migrate(database); err != nil {
				return err
			}
		}

		publisher, closePublisher, err := buildPublisher(logger)
		if err != nil {
			return err
		}
		defer closePublisher()

		limiter, err := ratelimit.New(cfg.RateLimit)
		if err != nil {
			return err
		}

		store := repository.NewStore()

		sweeper := jobs.NewExpirySweeper(database, store, logger)
		if err := sweeper.Start(cfg.Jobs.ExpirySchedule); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: server.NewRouter(server.Deps{
				DB:        database,
				Store:     store,
				Publisher: publisher,
				Limiter:   limiter,
				Config:    cfg,
				Logger:    logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			sweeper.Stop(shutdownCtx)
		}()

		logger.Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "run AutoMigrate before serving")
	rootCmd.AddCommand(serveCmd)
}
