// Package disclosure implementa a máquina de estados de divulgação: pedidos de
// contato, aceite, promoção a opt-in mútuo e a anonimização aplicada na
// leitura.
package disclosure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/metrics"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

type Service struct {
	db        *gorm.DB
	store     *repository.Store
	publisher notify.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(db *gorm.DB, store *repository.Store, publisher notify.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Service{
		db:        db,
		store:     store,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("marketplace/disclosure"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateContactInput struct {
	MatchID string `json:"matchId" validate:"required"`
	Message string `json:"message" validate:"max=2000"`
}

// CreateContactRequest registra o pedido de contato do chamador e avança o
// match para CONTACT_REQUESTED. O destinatário é sempre a outra parte do match.
func (s *Service) CreateContactRequest(ctx context.Context, caller models.Identity, in CreateContactInput) (*models.ContactRequest, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "disclosure.CreateContactRequest",
		trace.WithAttributes(attribute.String("match_id", in.MatchID)))
	defer span.End()

	var cr *models.ContactRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.store.Matches.Lock(tx, in.MatchID)
		if err != nil {
			return err
		}
		if !m.IsParty(caller.UserID) {
			return apperr.Forbidden("not a party to this match")
		}
		if !m.DemandKind.Valid() || m.DemandID == "" {
			return apperr.InvalidMatch("match has no demand attached")
		}

		mutual, err := s.store.Contacts.HasMutualOptIn(tx, m.ID)
		if err != nil {
			return err
		}
		if mutual {
			return apperr.Precondition("mutual opt-in already reached for this match")
		}

		exists, err := s.store.Contacts.ExistsForRequester(tx, m.ID, caller.UserID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Duplicate("contact request already sent")
		}

		cr = &models.ContactRequest{
			MatchID:       m.ID,
			RequestedByID: caller.UserID,
			RequestedToID: m.Counterparty(caller.UserID),
			Message:       in.Message,
		}
		if err := s.store.Contacts.Create(tx, cr); err != nil {
			if apperr.Is(err, apperr.KindDuplicate) {
				return apperr.Duplicate("contact request already sent")
			}
			return err
		}

		return s.advance(tx, m, models.MatchContactRequested)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.DisclosureTransitionsTotal.WithLabelValues("contact_requested").Inc()
	s.logger.Info("contact requested",
		zap.String("match_id", cr.MatchID),
		zap.String("user_id", caller.UserID),
		zap.String("contact_request_id", cr.ID),
	)
	notify.Dispatch(ctx, s.publisher, s.logger,
		notify.NewEvent(notify.EventContactRequested, cr.MatchID, caller.UserID, cr.RequestedToID))

	return cr, nil
}

// AcceptContactRequest marca o pedido como aceito. Quando todos os pedidos do
// match estão aceitos, todos recebem isMutualOptIn e o match vai para
// MUTUAL_OPT_IN. O match fica bloqueado durante toda a operação, então dois
// aceites simultâneos não perdem a promoção.
func (s *Service) AcceptContactRequest(ctx context.Context, caller models.Identity, requestID string) (*models.ContactRequest, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}

	ctx, span := s.tracer.Start(ctx, "disclosure.AcceptContactRequest",
		trace.WithAttributes(attribute.String("contact_request_id", requestID)))
	defer span.End()

	var (
		cr       *models.ContactRequest
		promoted bool
		match    *models.Match
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.store.Contacts.FindByID(tx, requestID)
		if err != nil {
			return err
		}
		if found.RequestedToID != caller.UserID {
			return apperr.Forbidden("only the requested party can accept")
		}

		match, err = s.store.Matches.Lock(tx, found.MatchID)
		if err != nil {
			return err
		}

		// relê após o lock
		cr, err = s.store.Contacts.FindByID(tx, requestID)
		if err != nil {
			return err
		}
		if !cr.IsAccepted {
			at := s.now()
			if err := s.store.Contacts.Accept(tx, cr.ID, at); err != nil {
				return err
			}
			cr.IsAccepted = true
			cr.AcceptedAt = &at
		}

		all, err := s.store.Contacts.ListByMatch(tx, match.ID)
		if err != nil {
			return err
		}
		if !allAccepted(all) || anyMutual(all) {
			return nil
		}

		if err := s.store.Contacts.MarkMutualOptIn(tx, match.ID); err != nil {
			return err
		}
		cr.IsMutualOptIn = true
		promoted = true
		return s.advance(tx, match, models.MatchMutualOptIn)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.DisclosureTransitionsTotal.WithLabelValues("contact_accepted").Inc()
	s.logger.Info("contact request accepted",
		zap.String("match_id", cr.MatchID),
		zap.String("user_id", caller.UserID),
		zap.Bool("mutual_opt_in", promoted),
	)
	if promoted {
		metrics.DisclosureTransitionsTotal.WithLabelValues("mutual_opt_in").Inc()
		notify.Dispatch(ctx, s.publisher, s.logger,
			notify.NewEvent(notify.EventMutualOptIn, match.ID, caller.UserID, match.ManufacturerID, match.SupplierID))
	}

	return cr, nil
}

// HasMutualOptIn reports whether any contact request of the match reached mutual opt-in.
func (s *Service) HasMutualOptIn(ctx context.Context, matchID string) (bool, error) {
	return s.store.Contacts.HasMutualOptIn(s.db.WithContext(ctx), matchID)
}

// advance grava o novo status somente se ele estiver à frente do atual.
func (s *Service) advance(tx *gorm.DB, m *models.Match, next models.MatchStatus) error {
	status := m.Status.Advance(next)
	if status == m.Status {
		return nil
	}
	if err := s.store.Matches.UpdateStatus(tx, m.ID, status); err != nil {
		return err
	}
	m.Status = status
	return nil
}

func allAccepted(list []models.ContactRequest) bool {
	if len(list) == 0 {
		return false
	}
	for _, c := range list {
		if !c.IsAccepted {
			return false
		}
	}
	return true
}

func anyMutual(list []models.ContactRequest) bool {
	for _, c := range list {
		if c.IsMutualOptIn {
			return true
		}
	}
	return false
}
