package main

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/utils/db"
)

func openDatabase() (*gorm.DB, error) {
	database, err := db.ConnectDataBase(cfg.Store)
	if err != nil {
		return nil, err
	}
	zap.L().Info("database connected", zap.String("driver", cfg.Store.Driver))
	return database, nil
}

// buildPublisher combina os destinos de eventos configurados. O log está
// sempre ativo; webhook e Kafka só quando configurados.
func buildPublisher(logger *zap.Logger) (notify.Publisher, func(), error) {
	sinks := notify.Multi{notify.LogPublisher{Logger: logger}}
	closers := []func() error{}

	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookPublisher(cfg.Notify.WebhookURL))
	}
	if len(cfg.Notify.Kafka.Brokers) > 0 {
		kp, err := notify.NewKafkaPublisher(notify.KafkaConfig{
			Brokers: cfg.Notify.Kafka.Brokers,
			Topic:   cfg.Notify.Kafka.Topic,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, kp)
		closers = append(closers, kp.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to close event sink", zap.Error(err))
			}
		}
	}
	return sinks, closeAll, nil
}
