// Package supply cadastra ofertas de fornecedores. Cada oferta nova é
// confrontada com RFQs e baselines ativos antes do commit.
package supply

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

type ListingInput struct {
	MaterialType           string     `json:"materialType" validate:"required,max=255"`
	MaterialGrade          string     `json:"materialGrade" validate:"required,max=255"`
	TechnicalSpecs         string     `json:"technicalSpecs" validate:"required"`
	Quality                string     `json:"quality" validate:"required"`
	AvailableVolume        float64    `json:"availableVolume" validate:"gt=0"`
	Unit                   string     `json:"unit" validate:"required,max=50"`
	VolumeOverTime         string     `json:"volumeOverTime" validate:"required"`
	PreferredDeliveryModes string     `json:"preferredDeliveryModes" validate:"required"`
	DeliveryLocation       string     `json:"deliveryLocation"`
	PricingStructure       string     `json:"pricingStructure" validate:"required"`
	ValidFrom              time.Time  `json:"validFrom" validate:"required"`
	ValidUntil             *time.Time `json:"validUntil"`
	IsActive               *bool      `json:"isActive"`
	IsAnonymous            *bool      `json:"isAnonymous"`
}

type Result struct {
	Listing *models.SupplyListing `json:"supplyListing"`
	Matches []matching.Summary    `json:"matches"`
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
	return &Service{
		db:     db,
		store:  store,
		engine: engine,
		views:  views,
		logger: logger,
	}
}

// Create grava a oferta do fornecedor e roda o matching contra os dois tipos
// de demanda.
func (s *Service) Create(ctx context.Context, caller models.Identity, in ListingInput) (*Result, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if caller.Role != models.RoleSupplier {
		return nil, apperr.Forbidden("only suppliers can publish supply listings")
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	if in.ValidUntil != nil && in.ValidUntil.Before(in.ValidFrom) {
		return nil, apperr.Validation("validUntil must be after validFrom")
	}

	l := &models.SupplyListing{
		SupplierID:             caller.UserID,
		MaterialType:           in.MaterialType,
		MaterialGrade:          in.MaterialGrade,
		TechnicalSpecs:         in.TechnicalSpecs,
		Quality:                in.Quality,
		AvailableVolume:        in.AvailableVolume,
		Unit:                   in.Unit,
		VolumeOverTime:         in.VolumeOverTime,
		PreferredDeliveryModes: in.PreferredDeliveryModes,
		DeliveryLocation:       in.DeliveryLocation,
		PricingStructure:       in.PricingStructure,
		ValidFrom:              in.ValidFrom,
		ValidUntil:             in.ValidUntil,
		IsActive:               in.IsActive == nil || *in.IsActive,
		IsAnonymous:            in.IsAnonymous == nil || *in.IsAnonymous,
	}

	var matches []models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.store.Supply.Create(tx, l); err != nil {
			return err
		}
		var err error
		matches, err = s.engine.RunTx(ctx, tx, matching.SupplyTrigger(l.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.engine.Announce(ctx, matches)

	s.logger.Info("supply listing created",
		zap.String("supply_id", l.ID),
		zap.String("user_id", caller.UserID),
		zap.Int("matches", len(matches)),
	)
	return &Result{Listing: l, Matches: matching.Summaries(matches)}, nil
}

func (s *Service) List(ctx context.Context, caller models.Identity, mine bool) ([]disclosure.SupplyView, error) {
	return s.views.ListSupply(ctx, caller, mine)
}
