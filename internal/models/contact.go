package models

import "time"

// ContactRequest é o pedido de uma parte para revelar identidades num match.
type ContactRequest struct {
	Base
	MatchID       string     `gorm:"size:36;not null;uniqueIndex:idx_contact_match_requester,priority:1" json:"matchId"`
	RequestedByID string     `gorm:"size:36;not null;uniqueIndex:idx_contact_match_requester,priority:2;index" json:"requestedById"`
	RequestedToID string     `gorm:"size:36;not null;index" json:"requestedToId"`
	Message       string     `gorm:"type:text" json:"message,omitempty"`
	IsAccepted    bool       `json:"isAccepted"`
	IsMutualOptIn bool       `json:"isMutualOptIn"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
}
