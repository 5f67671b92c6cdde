// Package demand cadastra RFQs e baselines de offtake e dispara o matching
// na mesma transação do cadastro.
package demand

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/matching"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

// Fields são os campos comuns aos dois tipos de demanda.
type Fields struct {
	MaterialType           string   `json:"materialType" validate:"required,max=255"`
	MaterialGrade          string   `json:"materialGrade" validate:"required,max=255"`
	TechnicalSpecs         string   `json:"technicalSpecs" validate:"required"`
	Tolerances             string   `json:"tolerances"`
	ComplianceRequirements string   `json:"complianceRequirements" validate:"required"`
	Incoterms              string   `json:"incoterms" validate:"required,max=50"`
	DeliveryLocation       string   `json:"deliveryLocation" validate:"required"`
	DeliverySchedule       string   `json:"deliverySchedule" validate:"required"`
	TargetPrice            *float64 `json:"targetPrice" validate:"omitempty,gt=0"`
	PricingFormula         string   `json:"pricingFormula"`
	Quantity               float64  `json:"quantity" validate:"gt=0"`
	Unit                   string   `json:"unit" validate:"required,max=50"`
	IsActive               *bool    `json:"isActive"`
	IsAnonymous            *bool    `json:"isAnonymous"`
}

type RFQInput struct {
	Fields
	ExpiresAt *time.Time `json:"expiresAt"`
}

type OfftakeInput struct {
	Fields
	Frequency string     `json:"frequency" validate:"required,max=50"`
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   *time.Time `json:"endDate" validate:"omitempty,gtfield=StartDate"`
}

// RFQResult devolve o RFQ criado junto com os matches que ele gerou.
type RFQResult struct {
	RFQ     *models.RFQ        `json:"rfq"`
	Matches []matching.Summary `json:"matches"`
}

type OfftakeResult struct {
	Offtake *models.OfftakeBaseline `json:"offtakeBaseline"`
	Matches []matching.Summary      `json:"matches"`
}

type Service struct {
	db     *gorm.DB
	store  *repository.Store
	engine *matching.Engine
	views  *disclosure.Service
	logger *zap.Logger
}

func NewService(db *gorm.DB, store *repository.Store, engine *matching.Engine, views *disclosure.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{db: db, store: store, engine: engine, views: views, logger: logger}
}

// boolOr devolve def quando o campo foi omitido.
func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (f Fields) terms(manufacturerID string) models.DemandTerms {
	return models.DemandTerms{
		ManufacturerID:         manufacturerID,
		MaterialType:           f.MaterialType,
		MaterialGrade:          f.MaterialGrade,
		TechnicalSpecs:         f.TechnicalSpecs,
		Tolerances:             f.Tolerances,
		ComplianceRequirements: f.ComplianceRequirements,
		Incoterms:              f.Incoterms,
		DeliveryLocation:       f.DeliveryLocation,
		DeliverySchedule:       f.DeliverySchedule,
		TargetPrice:            f.TargetPrice,
		PricingFormula:         f.PricingFormula,
		Quantity:               f.Quantity,
		Unit:                   f.Unit,
		IsActive:               boolOr(f.IsActive, true),
		IsAnonymous:            boolOr(f.IsAnonymous, true),
	}
}

func authorize(caller models.Identity) error {
	if !caller.Authenticated() {
		return apperr.Unauthenticated("authentication required")
	}
	if caller.Role != models.RoleManufacturer {
		return apperr.Forbidden("only manufacturers can publish demand")
	}
	return nil
}

func (s *Service) CreateRFQ(ctx context.Context, caller models.Identity, in RFQInput) (*RFQResult, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	rfq := &models.RFQ{DemandTerms: in.terms(caller.UserID), ExpiresAt: in.ExpiresAt}
	matches, err := s.persist(ctx, func(tx *gorm.DB) (models.Demand, error) {
		return models.DemandFromRFQ(rfq), s.store.Demands.CreateRFQ(tx, rfq)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rfq created",
		zap.String("rfq_id", rfq.ID),
		zap.String("user_id", caller.UserID),
		zap.Int("matches", len(matches)),
	)
	return &RFQResult{RFQ: rfq, Matches: matching.Summaries(matches)}, nil
}

func (s *Service) CreateOfftake(ctx context.Context, caller models.Identity, in OfftakeInput) (*OfftakeResult, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	o := &models.OfftakeBaseline{
		DemandTerms: in.terms(caller.UserID),
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
	matches, err := s.persist(ctx, func(tx *gorm.DB) (models.Demand, error) {
		return models.DemandFromOfftake(o), s.store.Demands.CreateOfftake(tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offtake baseline created",
		zap.String("offtake_id", o.ID),
		zap.String("user_id", caller.UserID),
		zap.Int("matches", len(matches)),
	)
	return &OfftakeResult{Offtake: o, Matches: matching.Summaries(matches)}, nil
}

// persist grava a demanda e roda o matching na mesma transação; os matches só
// são anunciados depois do commit.
func (s *Service) persist(ctx context.Context, create func(tx *gorm.DB) (models.Demand, error)) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := create(tx)
		if err != nil {
			return err
		}
		matches, err = s.engine.RunTx(ctx, tx, matching.DemandTrigger(d))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.engine.Announce(ctx, matches)
	return matches, nil
}

func (s *Service) ListRFQs(ctx context.Context, caller models.Identity, mine bool) ([]disclosure.RFQView, error) {
	return s.views.ListRFQs(ctx, caller, mine)
}

func (s *Service) ListOfftakes(ctx context.Context, caller models.Identity, mine bool) ([]disclosure.OfftakeView, error) {
	return s.views.ListOfftakes(ctx, caller, mine)
}
