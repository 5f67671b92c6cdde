package matching

import "github.com/KromaEnergia/api-marketplace/internal/models"

// Summary é o match como devolvido a quem criou o registro que o disparou.
// Não carrega os ids das partes.
type Summary struct {
	ID              string             `json:"id"`
	DemandKind      models.DemandKind  `json:"demandKind"`
	DemandID        string             `json:"demandId"`
	SupplyListingID string             `json:"supplyListingId"`
	MatchScore      float64            `json:"matchScore"`
	MatchReasons    []string           `json:"matchReasons"`
	Status          models.MatchStatus `json:"status"`
}

func Summaries(matches []models.Match) []Summary {
	out := make([]Summary, 0, len(matches))
	for _, m := range matches {
		out = append(out, Summary{
			ID:              m.ID,
			DemandKind:      m.DemandKind,
			DemandID:        m.DemandID,
			SupplyListingID: m.SupplyListingID,
			MatchScore:      m.MatchScore,
			MatchReasons:    m.MatchReasons,
			Status:          m.Status,
		})
	}
	return out
}
