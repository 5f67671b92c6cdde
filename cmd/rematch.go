package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KromaEnergia/api-marketplace/internal/matching"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/utils/db"
)

// rematch é seguro para repetir: pares já casados são ignorados.
var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Re-run matching for every active supply listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := zap.L()
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(database) }()

		publisher, closePublisher, err := buildPublisher(logger)
		if err != nil {
			return err
		}
		defer closePublisher()

		engine := matching.NewEngine(database, repository.NewStore(), matching.ScorerFromConfig(cfg.Matching), publisher, logger)
		n, err := engine.RematchAll(ctx)
		if err != nil {
			logger.Error("rematch interrupted", zap.Int("matches_created", n), zap.Error(err))
			return err
		}
		logger.Info("rematch finished", zap.Int("matches_created", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rematchCmd)
}
