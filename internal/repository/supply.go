package repository

import (
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/models"
)

type SupplyRepository interface {
	Create(db *gorm.DB, s *models.SupplyListing) error
	FindByID(db *gorm.DB, id string) (*models.SupplyListing, error)
	FindActiveByMaterial(db *gorm.DB, materialType, materialGrade string) ([]models.SupplyListing, error)
	ListActive(db *gorm.DB) ([]models.SupplyListing, error)
	List(db *gorm.DB, f ListFilter) ([]models.SupplyListing, error)
	DeactivateExpired(db *gorm.DB, now time.Time) (int64, error)
}

type supplyRepository struct{}

func NewSupplyRepository() SupplyRepository {
	return &supplyRepository{}
}

func (r *supplyRepository) Create(db *gorm.DB, s *models.SupplyListing) error {
	return eris.Wrap(db.Create(s).Error, "repository: create supply listing")
}

func (r *supplyRepository) FindByID(db *gorm.DB, id string) (*models.SupplyListing, error) {
	var s models.SupplyListing
	if err := db.First(&s, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "supply listing")
	}
	return &s, nil
}

func (r *supplyRepository) FindActiveByMaterial(db *gorm.DB, materialType, materialGrade string) ([]models.SupplyListing, error) {
	var list []models.SupplyListing
	err := db.Where("is_active = ? AND material_type = ? AND material_grade = ?", true, materialType, materialGrade).
		Order("created_at").
		Find(&list).Error
	return list, eris.Wrap(err, "repository: find active supply listings")
}

func (r *supplyRepository) ListActive(db *gorm.DB) ([]models.SupplyListing, error) {
	var list []models.SupplyListing
	err := db.Where("is_active = ?", true).Order("created_at").Find(&list).Error
	return list, eris.Wrap(err, "repository: list active supply listings")
}

func (r *supplyRepository) List(db *gorm.DB, f ListFilter) ([]models.SupplyListing, error) {
	var list []models.SupplyListing
	q := db.Order("created_at DESC")
	if f.OwnerID != "" {
		q = q.Where("supplier_id = ?", f.OwnerID)
	}
	err := q.Find(&list).Error
	return list, eris.Wrap(err, "repository: list supply listings")
}

func (r *supplyRepository) DeactivateExpired(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.SupplyListing{}).
		Where("is_active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, now).
		Update("is_active", false)
	return res.RowsAffected, eris.Wrap(res.Error, "repository: deactivate supply listings")
}
