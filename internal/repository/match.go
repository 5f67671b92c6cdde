package repository

import (
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KromaEnergia/api-marketplace/internal/models"
)

type MatchRepository interface {
	// CreateIfAbsent insere o match, a menos que o par (demanda, oferta) já exista.
	// Retorna false quando o par já estava registrado.
	CreateIfAbsent(db *gorm.DB, m *models.Match) (bool, error)
	FindByID(db *gorm.DB, id string) (*models.Match, error)
	// Lock carrega o match com bloqueio de linha, serializando transições concorrentes.
	Lock(db *gorm.DB, id string) (*models.Match, error)
	ListByParty(db *gorm.DB, userID string) ([]models.Match, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.Match, error)
	UpdateStatus(db *gorm.DB, id string, status models.MatchStatus) error
}

type matchRepository struct{}

func NewMatchRepository() MatchRepository {
	return &matchRepository{}
}

func (r *matchRepository) CreateIfAbsent(db *gorm.DB, m *models.Match) (bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "demand_kind"}, {Name: "demand_id"}, {Name: "supply_listing_id"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return false, eris.Wrap(res.Error, "repository: create match")
	}
	return res.RowsAffected > 0, nil
}

func (r *matchRepository) FindByID(db *gorm.DB, id string) (*models.Match, error) {
	var m models.Match
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "match")
	}
	return &m, nil
}

func (r *matchRepository) Lock(db *gorm.DB, id string) (*models.Match, error) {
	var m models.Match
	if err := forUpdate(db).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "match")
	}
	return &m, nil
}

func (r *matchRepository) ListByParty(db *gorm.DB, userID string) ([]models.Match, error) {
	var list []models.Match
	err := db.Where("manufacturer_id = ? OR supplier_id = ?", userID, userID).
		Order("match_score DESC").
		Order("created_at DESC").
		Find(&list).Error
	return list, eris.Wrap(err, "repository: list matches")
}

func (r *matchRepository) FindByIDs(db *gorm.DB, ids []string) ([]models.Match, error) {
	var list []models.Match
	if len(ids) == 0 {
		return list, nil
	}
	err := db.Where("id IN ?", ids).Find(&list).Error
	return list, eris.Wrap(err, "repository: find matches")
}

func (r *matchRepository) UpdateStatus(db *gorm.DB, id string, status models.MatchStatus) error {
	err := db.Model(&models.Match{}).Where("id = ?", id).Update("status", status).Error
	return eris.Wrap(err, "repository: update match status")
}
