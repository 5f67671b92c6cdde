package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory é uma janela fixa por chave, a mesma regra do backend Redis: a
// primeira requisição abre a janela e as seguintes só incrementam o contador
// até resetAt.
type Memory struct {
	mu        sync.Mutex
	windows   map[string]*window
	requests  int
	window    time.Duration
	nextEvict time.Time
	now       func() time.Time
}

func NewMemory(requests int, size time.Duration) *Memory {
	if requests <= 0 {
		requests = 1
	}
	if size <= 0 {
		size = time.Minute
	}
	return &Memory{
		windows:  map[string]*window{},
		requests: requests,
		window:   size,
		now:      time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.window)}
		m.windows[key] = w
	}
	w.count++

	d := Decision{
		Allowed:   w.count <= m.requests,
		Remaining: m.requests - w.count,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryIn = w.resetAt.Sub(now)
	}
	record(d)
	return d, nil
}

// evict descarta janelas vencidas. Roda no máximo uma vez por janela, então o
// custo da varredura se dilui entre as chamadas.
func (m *Memory) evict(now time.Time) {
	if now.Before(m.nextEvict) {
		return
	}
	m.nextEvict = now.Add(m.window)
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
