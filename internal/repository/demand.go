package repository

import (
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/models"
)

// DemandRepository cobre as duas variantes de demanda. As consultas por
// material usam igualdade exata (case-sensitive) de tipo e grau.
type DemandRepository interface {
	CreateRFQ(db *gorm.DB, r *models.RFQ) error
	CreateOfftake(db *gorm.DB, o *models.OfftakeBaseline) error
	Find(db *gorm.DB, kind models.DemandKind, id string) (models.Demand, error)
	FindActiveByMaterial(db *gorm.DB, kind models.DemandKind, materialType, materialGrade string) ([]models.Demand, error)
	ListRFQs(db *gorm.DB, f ListFilter) ([]models.RFQ, error)
	ListOfftakes(db *gorm.DB, f ListFilter) ([]models.OfftakeBaseline, error)
	DeactivateExpired(db *gorm.DB, now time.Time) (rfqs int64, offtakes int64, err error)
}

type demandRepository struct{}

func NewDemandRepository() DemandRepository {
	return &demandRepository{}
}

func (r *demandRepository) CreateRFQ(db *gorm.DB, rfq *models.RFQ) error {
	return eris.Wrap(db.Create(rfq).Error, "repository: create rfq")
}

func (r *demandRepository) CreateOfftake(db *gorm.DB, o *models.OfftakeBaseline) error {
	return eris.Wrap(db.Create(o).Error, "repository: create offtake baseline")
}

func (r *demandRepository) Find(db *gorm.DB, kind models.DemandKind, id string) (models.Demand, error) {
	switch kind {
	case models.DemandRFQ:
		var rfq models.RFQ
		if err := db.First(&rfq, "id = ?", id).Error; err != nil {
			return models.Demand{}, notFoundOr(err, "rfq")
		}
		return models.DemandFromRFQ(&rfq), nil
	case models.DemandOfftakeBaseline:
		var o models.OfftakeBaseline
		if err := db.First(&o, "id = ?", id).Error; err != nil {
			return models.Demand{}, notFoundOr(err, "offtake baseline")
		}
		return models.DemandFromOfftake(&o), nil
	}
	return models.Demand{}, apperr.InvalidMatch("unknown demand kind " + string(kind))
}

func (r *demandRepository) FindActiveByMaterial(db *gorm.DB, kind models.DemandKind, materialType, materialGrade string) ([]models.Demand, error) {
	q := db.Where("is_active = ? AND material_type = ? AND material_grade = ?", true, materialType, materialGrade).
		Order("created_at")

	switch kind {
	case models.DemandRFQ:
		var list []models.RFQ
		if err := q.Find(&list).Error; err != nil {
			return nil, eris.Wrap(err, "repository: find active rfqs")
		}
		out := make([]models.Demand, 0, len(list))
		for i := range list {
			out = append(out, models.DemandFromRFQ(&list[i]))
		}
		return out, nil
	case models.DemandOfftakeBaseline:
		var list []models.OfftakeBaseline
		if err := q.Find(&list).Error; err != nil {
			return nil, eris.Wrap(err, "repository: find active offtake baselines")
		}
		out := make([]models.Demand, 0, len(list))
		for i := range list {
			out = append(out, models.DemandFromOfftake(&list[i]))
		}
		return out, nil
	}
	return nil, apperr.Validation("unknown demand kind " + string(kind))
}

func (r *demandRepository) ListRFQs(db *gorm.DB, f ListFilter) ([]models.RFQ, error) {
	var list []models.RFQ
	q := db.Order("created_at DESC")
	if f.OwnerID != "" {
		q = q.Where("manufacturer_id = ?", f.OwnerID)
	}
	err := q.Find(&list).Error
	return list, eris.Wrap(err, "repository: list rfqs")
}

func (r *demandRepository) ListOfftakes(db *gorm.DB, f ListFilter) ([]models.OfftakeBaseline, error) {
	var list []models.OfftakeBaseline
	q := db.Order("created_at DESC")
	if f.OwnerID != "" {
		q = q.Where("manufacturer_id = ?", f.OwnerID)
	}
	err := q.Find(&list).Error
	return list, eris.Wrap(err, "repository: list offtake baselines")
}

func (r *demandRepository) DeactivateExpired(db *gorm.DB, now time.Time) (int64, int64, error) {
	res := db.Model(&models.RFQ{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, 0, eris.Wrap(res.Error, "repository: deactivate rfqs")
	}
	rfqs := res.RowsAffected

	res = db.Model(&models.OfftakeBaseline{}).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date < ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return rfqs, 0, eris.Wrap(res.Error, "repository: deactivate offtake baselines")
	}
	return rfqs, res.RowsAffected, nil
}
