// Package workflow registra rodadas de negociação e acordos, sempre
// condicionados ao opt-in mútuo do match.
package workflow

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
		tracer:    otel.Tracer("marketplace/workflow"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type NegotiationInput struct {
	MatchID       string   `json:"matchId" validate:"required"`
	ProposedPrice *float64 `json:"proposedPrice" validate:"omitempty,gt=0"`
	ProposedTerms string   `json:"proposedTerms" validate:"required,max=10000"`
	Notes         string   `json:"notes" validate:"max=10000"`
}

type AgreementInput struct {
	MatchID          string  `json:"matchId" validate:"required"`
	FinalPrice       float64 `json:"finalPrice" validate:"gt=0"`
	FinalTerms       string  `json:"finalTerms" validate:"required,max=10000"`
	Quantity         float64 `json:"quantity" validate:"gt=0"`
	DeliverySchedule string  `json:"deliverySchedule" validate:"required,max=1000"`
}

// lockForParty bloqueia o match e confere que o chamador é parte dele e que
// o opt-in mútuo já aconteceu.
func (s *Service) lockForParty(tx *gorm.DB, caller models.Identity, matchID string) (*models.Match, error) {
	m, err := s.store.Matches.Lock(tx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParty(caller.UserID) {
		return nil, apperr.Forbidden("not a party to this match")
	}
	mutual, err := s.store.Contacts.HasMutualOptIn(tx, m.ID)
	if err != nil {
		return nil, err
	}
	if !mutual {
		return nil, apperr.Precondition("mutual opt-in required")
	}
	return m, nil
}

// CreateNegotiation acrescenta uma rodada ao log do match e o avança para
// NEGOTIATING. Pode ser chamada várias vezes até o acordo fechar o match.
func (s *Service) CreateNegotiation(ctx context.Context, caller models.Identity, in NegotiationInput) (*models.Negotiation, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "workflow.CreateNegotiation",
		trace.WithAttributes(attribute.String("match_id", in.MatchID)))
	defer span.End()

	var (
		n *models.Negotiation
		m *models.Match
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.lockForParty(tx, caller, in.MatchID)
		if err != nil {
			return err
		}
		if m.Status == models.MatchClosed {
			return apperr.Precondition("match is closed")
		}

		n = &models.Negotiation{
			MatchID:       m.ID,
			InitiatedByID: caller.UserID,
			ProposedPrice: in.ProposedPrice,
			ProposedTerms: in.ProposedTerms,
			Notes:         in.Notes,
		}
		if err := s.store.Negotiations.Create(tx, n); err != nil {
			return err
		}

		if next := m.Status.Advance(models.MatchNegotiating); next != m.Status {
			if err := s.store.Matches.UpdateStatus(tx, m.ID, next); err != nil {
				return err
			}
			m.Status = next
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.DisclosureTransitionsTotal.WithLabelValues("negotiation_created").Inc()
	s.logger.Info("negotiation created",
		zap.String("match_id", m.ID),
		zap.String("user_id", caller.UserID),
		zap.String("negotiation_id", n.ID),
	)
	notify.Dispatch(ctx, s.publisher, s.logger,
		notify.NewEvent(notify.EventNegotiationCreated, m.ID, caller.UserID, m.Counterparty(caller.UserID)))

	return n, nil
}

// ListNegotiations devolve as rodadas do match, mais recentes primeiro.
func (s *Service) ListNegotiations(ctx context.Context, caller models.Identity, matchID string) ([]models.Negotiation, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	tx := s.db.WithContext(ctx)

	m, err := s.store.Matches.FindByID(tx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParty(caller.UserID) {
		return nil, apperr.Forbidden("not a party to this match")
	}
	return s.store.Negotiations.ListByMatch(tx, m.ID)
}

// CreateAgreement congela os termos finais e fecha o match. Cada match
// aceita um único acordo.
func (s *Service) CreateAgreement(ctx context.Context, caller models.Identity, in AgreementInput) (*models.Agreement, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "workflow.CreateAgreement",
		trace.WithAttributes(attribute.String("match_id", in.MatchID)))
	defer span.End()

	var a *models.Agreement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.lockForParty(tx, caller, in.MatchID)
		if err != nil {
			return err
		}

		demand, err := s.store.Demands.Find(tx, m.DemandKind, m.DemandID)
		if err != nil && !missing(err) {
			return err
		}
		if err != nil || !demand.Resolved() {
			return apperr.InvalidMatch("match has no demand attached")
		}
		listing, err := s.store.Supply.FindByID(tx, m.SupplyListingID)
		if err != nil && !missing(err) {
			return err
		}
		if err != nil {
			return apperr.InvalidMatch("match has no supply listing attached")
		}

		exists, err := s.store.Agreements.ExistsForMatch(tx, m.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Precondition("match already has an agreement")
		}

		a = &models.Agreement{
			MatchID:          m.ID,
			DemandKind:       demand.Kind,
			DemandID:         demand.ID(),
			SupplyListingID:  listing.ID,
			ManufacturerID:   demand.Terms().ManufacturerID,
			SupplierID:       listing.SupplierID,
			FinalPrice:       in.FinalPrice,
			FinalTerms:       in.FinalTerms,
			Quantity:         in.Quantity,
			DeliverySchedule: in.DeliverySchedule,
			Status:           models.AgreementPending,
		}
		if err := s.store.Agreements.Create(tx, a); err != nil {
			if apperr.Is(err, apperr.KindDuplicate) {
				return apperr.Precondition("match already has an agreement")
			}
			return err
		}

		return s.store.Matches.UpdateStatus(tx, m.ID, m.Status.Advance(models.MatchClosed))
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.DisclosureTransitionsTotal.WithLabelValues("agreement_created").Inc()
	s.logger.Info("agreement created",
		zap.String("match_id", a.MatchID),
		zap.String("user_id", caller.UserID),
		zap.String("agreement_id", a.ID),
	)
	ev := notify.NewEvent(notify.EventAgreementCreated, a.MatchID, caller.UserID, a.ManufacturerID, a.SupplierID)
	ev.Attributes = map[string]string{"agreement_id": a.ID}
	notify.Dispatch(ctx, s.publisher, s.logger, ev)

	return a, nil
}

// ExecuteAgreement marca o acordo como EXECUTED. É o estado terminal.
func (s *Service) ExecuteAgreement(ctx context.Context, caller models.Identity, agreementID string) (*models.Agreement, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}

	ctx, span := s.tracer.Start(ctx, "workflow.ExecuteAgreement",
		trace.WithAttributes(attribute.String("agreement_id", agreementID)))
	defer span.End()

	var a *models.Agreement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = s.store.Agreements.Lock(tx, agreementID)
		if err != nil {
			return err
		}
		if !a.IsParty(caller.UserID) {
			return apperr.Forbidden("not a party to this agreement")
		}
		if a.Status == models.AgreementExecuted {
			return apperr.Precondition("agreement already executed")
		}

		at := s.now()
		if err := s.store.Agreements.MarkExecuted(tx, a.ID, at); err != nil {
			return err
		}
		a.Status = models.AgreementExecuted
		a.ExecutedAt = &at
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.DisclosureTransitionsTotal.WithLabelValues("agreement_executed").Inc()
	s.logger.Info("agreement executed",
		zap.String("match_id", a.MatchID),
		zap.String("user_id", caller.UserID),
		zap.String("agreement_id", a.ID),
	)
	ev := notify.NewEvent(notify.EventAgreementExecuted, a.MatchID, caller.UserID, a.ManufacturerID, a.SupplierID)
	ev.Attributes = map[string]string{"agreement_id": a.ID}
	notify.Dispatch(ctx, s.publisher, s.logger, ev)

	return a, nil
}

// ListAgreements devolve os acordos em que o chamador é parte, mais recentes primeiro.
func (s *Service) ListAgreements(ctx context.Context, caller models.Identity) ([]models.Agreement, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	return s.store.Agreements.ListByParty(s.db.WithContext(ctx), caller.UserID)
}

// GetAgreement devolve um acordo do qual o chamador é parte.
func (s *Service) GetAgreement(ctx context.Context, caller models.Identity, agreementID string) (*models.Agreement, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	a, err := s.store.Agreements.FindByID(s.db.WithContext(ctx), agreementID)
	if err != nil {
		return nil, err
	}
	if !a.IsParty(caller.UserID) {
		return nil, apperr.Forbidden("not a party to this agreement")
	}
	return a, nil
}

// missing reports whether a lookup failed because the record does not resolve.
func missing(err error) bool {
	return apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindInvalidMatch)
}
