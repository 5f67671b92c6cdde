// Package jobs agenda as rotinas de manutenção do marketplace.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/metrics"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
)

// SweepResult conta os registros desativados numa passada.
type SweepResult struct {
	RFQs     int64
	Offtakes int64
	Supply   int64
}

func (r SweepResult) Total() int64 { return r.RFQs + r.Offtakes + r.Supply }

// ExpirySweeper desativa RFQs, baselines e ofertas cuja validade passou.
// Registros inativos deixam de participar do matching.
type ExpirySweeper struct {
	db     *gorm.DB
	store  *repository.Store
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewExpirySweeper(db *gorm.DB, store *repository.Store, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.L()
	}
	return &ExpirySweeper{
		db:     db,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sweep roda uma passada numa única transação.
func (s *ExpirySweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res.RFQs, res.Offtakes, err = s.store.Demands.DeactivateExpired(tx, now)
		if err != nil {
			return err
		}
		res.Supply, err = s.store.Supply.DeactivateExpired(tx, now)
		return err
	})
	if err != nil {
		return SweepResult{}, eris.Wrap(err, "jobs: expiry sweep")
	}

	metrics.ExpiredRecordsTotal.WithLabelValues("rfq").Add(float64(res.RFQs))
	metrics.ExpiredRecordsTotal.WithLabelValues("offtake_baseline").Add(float64(res.Offtakes))
	metrics.ExpiredRecordsTotal.WithLabelValues("supply_listing").Add(float64(res.Supply))
	return res, nil
}

// Start agenda Sweep conforme a expressão cron (aceita descritores como
// "@every 15m"). Chame Stop no shutdown.
func (s *ExpirySweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		res, err := s.Sweep(context.Background(), s.now())
		if err != nil {
			s.logger.Error("expiry sweep failed", zap.Error(err))
			return
		}
		if res.Total() > 0 {
			s.logger.Info("expired records deactivated",
				zap.Int64("rfqs", res.RFQs),
				zap.Int64("offtakes", res.Offtakes),
				zap.Int64("supply_listings", res.Supply),
			)
		}
	})
	if err != nil {
		return eris.Wrapf(err, "jobs: invalid schedule %q", schedule)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop espera a passada em andamento terminar ou ctx expirar.
func (s *ExpirySweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
