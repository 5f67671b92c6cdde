package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Redis é uma janela fixa compartilhada entre instâncias: o primeiro acesso
// cria o contador com TTL igual à janela e cada requisição o incrementa.
type Redis struct {
	client    redis.Cmdable
	keyPrefix string
	requests  int
	window    time.Duration
}

func NewRedis(client redis.Cmdable, keyPrefix string, requests int, window time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{client: client, keyPrefix: keyPrefix, requests: requests, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	rateKey := r.keyPrefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, rateKey, 0, r.window)
		incr = pipe.Incr(ctx, rateKey)
		ttl = pipe.PTTL(ctx, rateKey)
		return nil
	})
	if err != nil {
		return Decision{}, eris.Wrap(err, "ratelimit: redis")
	}

	count := int(incr.Val())
	d := Decision{
		Allowed:   count <= r.requests,
		Remaining: r.requests - count,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryIn = ttl.Val()
		if d.RetryIn < 0 {
			d.RetryIn = r.window
		}
	}
	record(d)
	return d, nil
}
