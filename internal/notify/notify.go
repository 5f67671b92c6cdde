// Package notify publica eventos de domínio do marketplace (match criado,
// opt-in mútuo, acordo executado...). A entrega é best-effort: falhas são
// registradas em log e nunca devolvidas ao chamador da transição.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KromaEnergia/api-marketplace/internal/metrics"
)

type EventType string

const (
	EventMatchCreated       EventType = "match.created"
	EventContactRequested   EventType = "contact.requested"
	EventMutualOptIn        EventType = "contact.mutual_opt_in"
	EventNegotiationCreated EventType = "negotiation.created"
	EventAgreementCreated   EventType = "agreement.created"
	EventAgreementExecuted  EventType = "agreement.executed"
)

// Event carrega apenas ids; nomes de empresa nunca saem por aqui, para não
// vazar identidade antes do opt-in mútuo.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	MatchID    string            `json:"matchId"`
	ActorID    string            `json:"actorId,omitempty"`
	Recipients []string          `json:"recipients"`
	OccurredAt time.Time         `json:"occurredAt"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewEvent builds an event stamped with a fresh id and the current time.
func NewEvent(t EventType, matchID, actorID string, recipients ...string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		MatchID:    matchID,
		ActorID:    actorID,
		Recipients: recipients,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher entrega um evento a um destino.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi publica em todos os destinos, mesmo quando algum falha.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop descarta os eventos.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher registra os eventos no logger.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, e Event) error {
	p.Logger.Info("domain event",
		zap.String("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("match_id", e.MatchID),
		zap.String("actor_id", e.ActorID),
		zap.Strings("recipients", e.Recipients),
	)
	return nil
}

// Dispatch publica os eventos e apenas registra as falhas.
func Dispatch(ctx context.Context, p Publisher, logger *zap.Logger, events ...Event) {
	if p == nil {
		return
	}
	if logger == nil {
		logger = zap.L()
	}
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(string(e.Type)).Inc()
			logger.Warn("failed to publish domain event",
				zap.String("type", string(e.Type)),
				zap.String("match_id", e.MatchID),
				zap.Error(err),
			)
		}
	}
}
