package models

import "time"

// DemandKind identifica qual variante de demanda um registro representa.
type DemandKind string

const (
	DemandRFQ             DemandKind = "RFQ"
	DemandOfftakeBaseline DemandKind = "OFFTAKE_BASELINE"
)

// Valid reports whether k is a known demand variant.
func (k DemandKind) Valid() bool {
	return k == DemandRFQ || k == DemandOfftakeBaseline
}

// DemandTerms são os campos compartilhados por RFQ e OfftakeBaseline.
type DemandTerms struct {
	ManufacturerID         string   `gorm:"size:36;index;not null" json:"manufacturerId"`
	MaterialType           string   `gorm:"size:255;index;not null" json:"materialType"`
	MaterialGrade          string   `gorm:"size:255;not null" json:"materialGrade"`
	TechnicalSpecs         string   `gorm:"type:text" json:"technicalSpecs"`
	Tolerances             string   `gorm:"type:text" json:"tolerances,omitempty"`
	ComplianceRequirements string   `gorm:"type:text" json:"complianceRequirements"`
	Incoterms              string   `gorm:"size:50" json:"incoterms"`
	DeliveryLocation       string   `json:"deliveryLocation"`
	DeliverySchedule       string   `json:"deliverySchedule"`
	TargetPrice            *float64 `json:"targetPrice,omitempty"`
	PricingFormula         string   `json:"pricingFormula,omitempty"`
	Quantity               float64  `gorm:"not null" json:"quantity"`
	Unit                   string   `gorm:"size:50;not null" json:"unit"`
	IsActive               bool     `gorm:"index" json:"isActive"`
	IsAnonymous            bool     `json:"isAnonymous"`
}

// RFQ é um pedido de cotação pontual, com expiração opcional.
type RFQ struct {
	Base
	DemandTerms `gorm:"embedded"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func (RFQ) TableName() string { return "rfqs" }

// OfftakeBaseline é uma demanda recorrente com frequência e vigência.
type OfftakeBaseline struct {
	Base
	DemandTerms `gorm:"embedded"`
	Frequency   string     `gorm:"size:50;not null" json:"frequency"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// Demand é a união RFQ | OfftakeBaseline. Exatamente um dos ponteiros é não-nulo,
// conforme Kind.
type Demand struct {
	Kind    DemandKind
	RFQ     *RFQ
	Offtake *OfftakeBaseline
}

// DemandFromRFQ wraps an RFQ as a Demand.
func DemandFromRFQ(r *RFQ) Demand { return Demand{Kind: DemandRFQ, RFQ: r} }

// DemandFromOfftake wraps an OfftakeBaseline as a Demand.
func DemandFromOfftake(o *OfftakeBaseline) Demand {
	return Demand{Kind: DemandOfftakeBaseline, Offtake: o}
}

// ID returns the id of the underlying record.
func (d Demand) ID() string {
	switch d.Kind {
	case DemandRFQ:
		if d.RFQ != nil {
			return d.RFQ.ID
		}
	case DemandOfftakeBaseline:
		if d.Offtake != nil {
			return d.Offtake.ID
		}
	}
	return ""
}

// Terms returns the shared demand fields, or the zero value when the variant is empty.
func (d Demand) Terms() DemandTerms {
	switch d.Kind {
	case DemandRFQ:
		if d.RFQ != nil {
			return d.RFQ.DemandTerms
		}
	case DemandOfftakeBaseline:
		if d.Offtake != nil {
			return d.Offtake.DemandTerms
		}
	}
	return DemandTerms{}
}

// Resolved reports whether the variant actually points at a record.
func (d Demand) Resolved() bool {
	return d.ID() != ""
}
