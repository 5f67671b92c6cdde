package models

import "time"

type SupplyListing struct {
	Base
	SupplierID             string     `gorm:"size:36;index;not null" json:"supplierId"`
	MaterialType           string     `gorm:"size:255;index;not null" json:"materialType"`
	MaterialGrade          string     `gorm:"size:255;not null" json:"materialGrade"`
	TechnicalSpecs         string     `gorm:"type:text" json:"technicalSpecs"`
	Quality                string     `json:"quality"`
	AvailableVolume        float64    `gorm:"not null" json:"availableVolume"`
	Unit                   string     `gorm:"size:50;not null" json:"unit"`
	VolumeOverTime         string     `json:"volumeOverTime"`
	PreferredDeliveryModes string     `json:"preferredDeliveryModes"`
	DeliveryLocation       string     `json:"deliveryLocation,omitempty"`
	PricingStructure       string     `gorm:"type:text" json:"pricingStructure"`
	ValidFrom              time.Time  `json:"validFrom"`
	ValidUntil             *time.Time `json:"validUntil,omitempty"`
	IsActive               bool       `gorm:"index" json:"isActive"`
	IsAnonymous            bool       `json:"isAnonymous"`
}
