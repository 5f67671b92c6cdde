package repository

import (
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/models"
)

type AgreementRepository interface {
	Create(db *gorm.DB, a *models.Agreement) error
	FindByID(db *gorm.DB, id string) (*models.Agreement, error)
	Lock(db *gorm.DB, id string) (*models.Agreement, error)
	ExistsForMatch(db *gorm.DB, matchID string) (bool, error)
	ListByParty(db *gorm.DB, userID string) ([]models.Agreement, error)
	MarkExecuted(db *gorm.DB, id string, at time.Time) error
}

type agreementRepository struct{}

func NewAgreementRepository() AgreementRepository {
	return &agreementRepository{}
}

func (r *agreementRepository) Create(db *gorm.DB, a *models.Agreement) error {
	return createErr(db.Create(a).Error, "agreement")
}

func (r *agreementRepository) FindByID(db *gorm.DB, id string) (*models.Agreement, error) {
	var a models.Agreement
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "agreement")
	}
	return &a, nil
}

func (r *agreementRepository) Lock(db *gorm.DB, id string) (*models.Agreement, error) {
	var a models.Agreement
	if err := forUpdate(db).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "agreement")
	}
	return &a, nil
}

func (r *agreementRepository) ExistsForMatch(db *gorm.DB, matchID string) (bool, error) {
	var n int64
	err := db.Model(&models.Agreement{}).Where("match_id = ?", matchID).Count(&n).Error
	return n > 0, eris.Wrap(err, "repository: count agreements")
}

func (r *agreementRepository) ListByParty(db *gorm.DB, userID string) ([]models.Agreement, error) {
	var list []models.Agreement
	err := db.Where("manufacturer_id = ? OR supplier_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, eris.Wrap(err, "repository: list agreements")
}

func (r *agreementRepository) MarkExecuted(db *gorm.DB, id string, at time.Time) error {
	err := db.Model(&models.Agreement{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.AgreementExecuted, "executed_at": at}).Error
	return eris.Wrap(err, "repository: execute agreement")
}
