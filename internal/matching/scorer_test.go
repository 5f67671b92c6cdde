package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/models"
)

func candidate(demandType, demandGrade, supplyType, supplyGrade string) Candidate {
	rfq := &models.RFQ{DemandTerms: models.DemandTerms{
		MaterialType: demandType, MaterialGrade: demandGrade, Quantity: 100, Unit: "t", DeliveryLocation: "Rotterdam",
	}}
	return Candidate{
		Demand: models.DemandFromRFQ(rfq),
		Supply: &models.SupplyListing{
			MaterialType: supplyType, MaterialGrade: supplyGrade, AvailableVolume: 500, Unit: "t",
		},
	}
}

func TestDefaultScorer(t *testing.T) {
	s := DefaultScorer()

	tests := []struct {
		name    string
		c       Candidate
		score   float64
		reasons []string
		passes  bool
	}{
		{
			name:    "type and grade match",
			c:       candidate("Steel", "A36", "Steel", "A36"),
			score:   60,
			reasons: []string{ReasonMaterialType, ReasonMaterialGrade},
			passes:  true,
		},
		{
			name:    "grade differs",
			c:       candidate("Steel", "A36", "Steel", "A572"),
			score:   30,
			reasons: []string{ReasonMaterialType},
			passes:  false,
		},
		{
			name:    "case sensitive",
			c:       candidate("Steel", "A36", "steel", "a36"),
			score:   0,
			reasons: []string{},
			passes:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.Score(tt.c)
			assert.InDelta(t, tt.score, r.Score, 0.001)
			assert.Equal(t, tt.reasons, r.Reasons)
			assert.Equal(t, tt.passes, s.Passes(r))
		})
	}
}

func TestScoreIsClamped(t *testing.T) {
	s := NewScorer(50,
		MaterialTypeCriterion(80),
		MaterialGradeCriterion(80),
		CriterionFunc(func(Candidate) (float64, string, bool) { return -500, "penalty", true }),
	)
	r := s.Score(candidate("Steel", "A36", "Steel", "A36"))
	// each delta is bounded to [0, 100] before summing, total clamped to 100
	assert.InDelta(t, MaxScore, r.Score, 0.001)
	assert.Equal(t, []string{ReasonMaterialType, ReasonMaterialGrade, "penalty"}, r.Reasons)
}

func TestScorerFromConfig(t *testing.T) {
	s := ScorerFromConfig(config.MatchingConfig{
		Threshold: 80,
		Weights: config.MatchingWeights{
			MaterialType:     30,
			MaterialGrade:    30,
			DeliveryLocation: 20,
			VolumeCoverage:   20,
		},
	})
	c := candidate("Steel", "A36", "Steel", "A36")
	c.Supply.DeliveryLocation = "rotterdam"

	r := s.Score(c)
	assert.InDelta(t, 100, r.Score, 0.001)
	assert.Equal(t, []string{ReasonMaterialType, ReasonMaterialGrade, ReasonDeliveryLocation, ReasonVolumeCoverage}, r.Reasons)
	assert.True(t, s.Passes(r))

	c.Supply.DeliveryLocation = ""
	c.Supply.AvailableVolume = 10
	r = s.Score(c)
	assert.InDelta(t, 60, r.Score, 0.001)
	assert.False(t, s.Passes(r))
}

func TestScorerFromConfigSkipsZeroWeights(t *testing.T) {
	s := ScorerFromConfig(config.MatchingConfig{
		Threshold: 50,
		Weights:   config.MatchingWeights{MaterialType: 30, MaterialGrade: 30},
	})
	assert.Len(t, s.criteria, 2)
	assert.InDelta(t, 50, s.Threshold(), 0.001)
}
