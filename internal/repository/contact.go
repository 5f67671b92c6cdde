package repository

import (
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/models"
)

type ContactRepository interface {
	Create(db *gorm.DB, c *models.ContactRequest) error
	FindByID(db *gorm.DB, id string) (*models.ContactRequest, error)
	ExistsForRequester(db *gorm.DB, matchID, requesterID string) (bool, error)
	ListByMatch(db *gorm.DB, matchID string) ([]models.ContactRequest, error)
	ListByMatches(db *gorm.DB, matchIDs []string) ([]models.ContactRequest, error)
	ListByUser(db *gorm.DB, userID string) ([]models.ContactRequest, error)
	Accept(db *gorm.DB, id string, at time.Time) error
	MarkMutualOptIn(db *gorm.DB, matchID string) error
	HasMutualOptIn(db *gorm.DB, matchID string) (bool, error)
	// MutualOptInMatchIDs lista os matches em que userID participa de um opt-in mútuo.
	MutualOptInMatchIDs(db *gorm.DB, userID string) ([]string, error)
}

type contactRepository struct{}

func NewContactRepository() ContactRepository {
	return &contactRepository{}
}

func (r *contactRepository) Create(db *gorm.DB, c *models.ContactRequest) error {
	return createErr(db.Create(c).Error, "contact request")
}

func (r *contactRepository) FindByID(db *gorm.DB, id string) (*models.ContactRequest, error) {
	var c models.ContactRequest
	if err := db.First(&c, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "contact request")
	}
	return &c, nil
}

func (r *contactRepository) ExistsForRequester(db *gorm.DB, matchID, requesterID string) (bool, error) {
	var n int64
	err := db.Model(&models.ContactRequest{}).
		Where("match_id = ? AND requested_by_id = ?", matchID, requesterID).
		Count(&n).Error
	return n > 0, eris.Wrap(err, "repository: count contact requests")
}

func (r *contactRepository) ListByMatch(db *gorm.DB, matchID string) ([]models.ContactRequest, error) {
	var list []models.ContactRequest
	err := db.Where("match_id = ?", matchID).Order("created_at").Find(&list).Error
	return list, eris.Wrap(err, "repository: list contact requests by match")
}

func (r *contactRepository) ListByMatches(db *gorm.DB, matchIDs []string) ([]models.ContactRequest, error) {
	var list []models.ContactRequest
	if len(matchIDs) == 0 {
		return list, nil
	}
	err := db.Where("match_id IN ?", matchIDs).Order("created_at").Find(&list).Error
	return list, eris.Wrap(err, "repository: list contact requests by matches")
}

func (r *contactRepository) ListByUser(db *gorm.DB, userID string) ([]models.ContactRequest, error) {
	var list []models.ContactRequest
	err := db.Where("requested_by_id = ? OR requested_to_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, eris.Wrap(err, "repository: list contact requests by user")
}

func (r *contactRepository) Accept(db *gorm.DB, id string, at time.Time) error {
	err := db.Model(&models.ContactRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_accepted": true, "accepted_at": at}).Error
	return eris.Wrap(err, "repository: accept contact request")
}

func (r *contactRepository) MarkMutualOptIn(db *gorm.DB, matchID string) error {
	err := db.Model(&models.ContactRequest{}).
		Where("match_id = ?", matchID).
		Update("is_mutual_opt_in", true).Error
	return eris.Wrap(err, "repository: mark mutual opt-in")
}

func (r *contactRepository) HasMutualOptIn(db *gorm.DB, matchID string) (bool, error) {
	var n int64
	err := db.Model(&models.ContactRequest{}).
		Where("match_id = ? AND is_mutual_opt_in = ?", matchID, true).
		Count(&n).Error
	return n > 0, eris.Wrap(err, "repository: check mutual opt-in")
}

func (r *contactRepository) MutualOptInMatchIDs(db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.Model(&models.ContactRequest{}).
		Distinct("match_id").
		Where("is_mutual_opt_in = ? AND (requested_by_id = ? OR requested_to_id = ?)", true, userID, userID).
		Pluck("match_id", &ids).Error
	return ids, eris.Wrap(err, "repository: list mutual opt-in matches")
}
