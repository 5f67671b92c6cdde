// Package ratelimit decide se um chamador pode prosseguir. O estado fica fora
// do núcleo: em memória para uma instância ou no Redis para várias.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/metrics"
)

// Decision é o resultado de uma consulta ao limitador.
type Decision struct {
	Allowed   bool
	Remaining int
	RetryIn   time.Duration
}

// Limiter admite ou rejeita requisições por chave (ex.: IP de origem).
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// New monta o limitador configurado.
func New(cfg config.RateLimitConfig) (Limiter, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.Requests, cfg.Window), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedis(client, cfg.KeyPrefix, cfg.Requests, cfg.Window), nil
	}
	return nil, eris.Errorf("ratelimit: unsupported backend %q", cfg.Backend)
}

func record(d Decision) {
	if d.Allowed {
		metrics.RateLimitDecisionsTotal.WithLabelValues("allowed").Inc()
		return
	}
	metrics.RateLimitDecisionsTotal.WithLabelValues("denied").Inc()
}
