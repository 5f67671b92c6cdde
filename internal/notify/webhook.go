package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// WebhookPublisher faz POST do evento em JSON numa URL configurada. Limiter
// segura o ritmo de saída para não derrubar o receptor; nil desliga.
type WebhookPublisher struct {
	URL     string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewWebhookPublisher(url string) *WebhookPublisher {
	return &WebhookPublisher{
		URL:     url,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, e Event) error {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "notify: webhook rate limit")
		}
	}

	body, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "notify: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(e.Type))

	resp, err := p.Client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: send webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return eris.New(fmt.Sprintf("notify: webhook returned %d", resp.StatusCode))
	}
	return nil
}
