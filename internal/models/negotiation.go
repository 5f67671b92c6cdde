package models

// Negotiation é uma rodada de proposta. Log somente de inserção.
type Negotiation struct {
	Base
	MatchID       string   `gorm:"size:36;not null;index" json:"matchId"`
	InitiatedByID string   `gorm:"size:36;not null" json:"initiatedById"`
	ProposedPrice *float64 `json:"proposedPrice,omitempty"`
	ProposedTerms string   `gorm:"type:text;not null" json:"proposedTerms"`
	Notes         string   `gorm:"type:text" json:"notes,omitempty"`
}
