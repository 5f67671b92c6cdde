package models

import "time"

type AgreementStatus string

const (
	AgreementPending  AgreementStatus = "PENDING"
	AgreementExecuted AgreementStatus = "EXECUTED"
)

// Agreement congela os termos finais de um match. No máximo um por match.
type Agreement struct {
	Base
	MatchID          string          `gorm:"size:36;not null;uniqueIndex" json:"matchId"`
	DemandKind       DemandKind      `gorm:"size:20;not null" json:"demandKind"`
	DemandID         string          `gorm:"size:36;not null" json:"demandId"`
	SupplyListingID  string          `gorm:"size:36;not null" json:"supplyListingId"`
	ManufacturerID   string          `gorm:"size:36;not null;index" json:"manufacturerId"`
	SupplierID       string          `gorm:"size:36;not null;index" json:"supplierId"`
	FinalPrice       float64         `gorm:"not null" json:"finalPrice"`
	FinalTerms       string          `gorm:"type:text;not null" json:"finalTerms"`
	Quantity         float64         `gorm:"not null" json:"quantity"`
	DeliverySchedule string          `gorm:"not null" json:"deliverySchedule"`
	Status           AgreementStatus `gorm:"size:20;not null" json:"status"`
	ExecutedAt       *time.Time      `json:"executedAt,omitempty"`
}

// IsParty reports whether userID signed on either side of the agreement.
func (a *Agreement) IsParty(userID string) bool {
	return userID != "" && (userID == a.ManufacturerID || userID == a.SupplierID)
}
