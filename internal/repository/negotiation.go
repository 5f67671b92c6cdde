package repository

import (
	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/models"
)

// NegotiationRepository é somente de inserção: não há update nem delete.
type NegotiationRepository interface {
	Create(db *gorm.DB, n *models.Negotiation) error
	ListByMatch(db *gorm.DB, matchID string) ([]models.Negotiation, error)
}

type negotiationRepository struct{}

func NewNegotiationRepository() NegotiationRepository {
	return &negotiationRepository{}
}

func (r *negotiationRepository) Create(db *gorm.DB, n *models.Negotiation) error {
	return eris.Wrap(db.Create(n).Error, "repository: create negotiation")
}

func (r *negotiationRepository) ListByMatch(db *gorm.DB, matchID string) ([]models.Negotiation, error) {
	var list []models.Negotiation
	err := db.Where("match_id = ?", matchID).Order("created_at DESC").Find(&list).Error
	return list, eris.Wrap(err, "repository: list negotiations")
}
