package models

// MatchStatus acompanha o ciclo de divulgação de um match.
// A ordem das constantes é a ordem do ciclo de vida; transições nunca voltam.
type MatchStatus string

const (
	MatchOpen             MatchStatus = "OPEN"
	MatchContactRequested MatchStatus = "CONTACT_REQUESTED"
	MatchMutualOptIn      MatchStatus = "MUTUAL_OPT_IN"
	MatchNegotiating      MatchStatus = "NEGOTIATING"
	MatchClosed           MatchStatus = "CLOSED"
)

var matchStatusRank = map[MatchStatus]int{
	MatchOpen:             0,
	MatchContactRequested: 1,
	MatchMutualOptIn:      2,
	MatchNegotiating:      3,
	MatchClosed:           4,
}

// Rank returns the position of s in the lifecycle; unknown values rank as OPEN.
func (s MatchStatus) Rank() int {
	return matchStatusRank[s]
}

// Advance returns next if it is further along the lifecycle than s, otherwise s.
func (s MatchStatus) Advance(next MatchStatus) MatchStatus {
	if next.Rank() > s.Rank() {
		return next
	}
	return s
}

// Match liga uma demanda (RFQ ou OfftakeBaseline) a um SupplyListing.
// ManufacturerID e SupplierID são copiados dos registros na criação.
type Match struct {
	Base
	DemandKind      DemandKind  `gorm:"size:20;not null;uniqueIndex:idx_match_pair,priority:1" json:"demandKind"`
	DemandID        string      `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2" json:"demandId"`
	SupplyListingID string      `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:3;index" json:"supplyListingId"`
	ManufacturerID  string      `gorm:"size:36;not null;index" json:"manufacturerId"`
	SupplierID      string      `gorm:"size:36;not null;index" json:"supplierId"`
	MatchScore      float64     `gorm:"not null" json:"matchScore"`
	MatchReasons    []string    `gorm:"type:jsonb;serializer:json" json:"matchReasons"`
	Status          MatchStatus `gorm:"size:30;not null;index" json:"status"`
}

// IsParty reports whether userID is the manufacturer or supplier of the match.
func (m *Match) IsParty(userID string) bool {
	return userID != "" && (userID == m.ManufacturerID || userID == m.SupplierID)
}

// Counterparty returns the other party of the match, or "" when userID is not a party.
func (m *Match) Counterparty(userID string) string {
	switch userID {
	case m.ManufacturerID:
		return m.SupplierID
	case m.SupplierID:
		return m.ManufacturerID
	}
	return ""
}
