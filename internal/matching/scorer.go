// Package matching implementa o motor de matching: dado um registro recém
// criado de demanda ou oferta, varre os registros ativos do lado oposto com o
// mesmo tipo e grau de material e cria Matches pontuados.
package matching

import (
	"math"
	"strings"

	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/models"
)

const (
	// MaxScore é o teto da escala de pontuação.
	MaxScore = 100.0

	ReasonMaterialType     = "Material type matches"
	ReasonMaterialGrade    = "Material grade matches"
	ReasonDeliveryLocation = "Delivery location matches"
	ReasonVolumeCoverage   = "Available volume covers requested quantity"
)

// Candidate é um par demanda × oferta a ser pontuado.
type Candidate struct {
	Demand models.Demand
	Supply *models.SupplyListing
}

// Criterion é um termo plugável da pontuação. Quando ok é true, delta é somado
// ao score e reason é anexado à lista de motivos.
type Criterion interface {
	Evaluate(c Candidate) (delta float64, reason string, ok bool)
}

// CriterionFunc adapts a function to the Criterion interface.
type CriterionFunc func(c Candidate) (float64, string, bool)

func (f CriterionFunc) Evaluate(c Candidate) (float64, string, bool) { return f(c) }

// Result é a pontuação de um candidato com os motivos na ordem dos critérios.
type Result struct {
	Score   float64
	Reasons []string
}

// Scorer soma os critérios em ordem e compara o total ao limiar.
type Scorer struct {
	threshold float64
	criteria  []Criterion
}

func NewScorer(threshold float64, criteria ...Criterion) *Scorer {
	return &Scorer{threshold: threshold, criteria: criteria}
}

// DefaultScorer reproduz a pontuação original: tipo (30) + grau (30), limiar 50.
func DefaultScorer() *Scorer {
	return NewScorer(50,
		MaterialTypeCriterion(30),
		MaterialGradeCriterion(30),
	)
}

// ScorerFromConfig monta o scorer a partir dos pesos configurados; peso zero
// desliga o critério.
func ScorerFromConfig(cfg config.MatchingConfig) *Scorer {
	w := cfg.Weights
	var criteria []Criterion
	if w.MaterialType > 0 {
		criteria = append(criteria, MaterialTypeCriterion(w.MaterialType))
	}
	if w.MaterialGrade > 0 {
		criteria = append(criteria, MaterialGradeCriterion(w.MaterialGrade))
	}
	if w.DeliveryLocation > 0 {
		criteria = append(criteria, DeliveryLocationCriterion(w.DeliveryLocation))
	}
	if w.VolumeCoverage > 0 {
		criteria = append(criteria, VolumeCoverageCriterion(w.VolumeCoverage))
	}
	return NewScorer(cfg.Threshold, criteria...)
}

func (s *Scorer) Threshold() float64 { return s.threshold }

// Score avalia todos os critérios. O total fica limitado a [0, MaxScore].
func (s *Scorer) Score(c Candidate) Result {
	res := Result{Reasons: []string{}}
	for _, crit := range s.criteria {
		delta, reason, ok := crit.Evaluate(c)
		if !ok {
			continue
		}
		res.Score += clamp(delta)
		if reason != "" {
			res.Reasons = append(res.Reasons, reason)
		}
	}
	res.Score = clamp(res.Score)
	return res
}

// Passes reports whether r reaches the match threshold.
func (s *Scorer) Passes(r Result) bool {
	return r.Score >= s.threshold
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(MaxScore, v))
}

// MaterialTypeCriterion soma weight quando o tipo de material é igual.
func MaterialTypeCriterion(weight float64) Criterion {
	return CriterionFunc(func(c Candidate) (float64, string, bool) {
		return weight, ReasonMaterialType, c.Demand.Terms().MaterialType == c.Supply.MaterialType
	})
}

// MaterialGradeCriterion soma weight quando o grau de material é igual.
func MaterialGradeCriterion(weight float64) Criterion {
	return CriterionFunc(func(c Candidate) (float64, string, bool) {
		return weight, ReasonMaterialGrade, c.Demand.Terms().MaterialGrade == c.Supply.MaterialGrade
	})
}

// DeliveryLocationCriterion compara os locais de entrega sem diferenciar
// maiúsculas; oferta sem local informado não pontua.
func DeliveryLocationCriterion(weight float64) Criterion {
	return CriterionFunc(func(c Candidate) (float64, string, bool) {
		want := strings.TrimSpace(c.Demand.Terms().DeliveryLocation)
		have := strings.TrimSpace(c.Supply.DeliveryLocation)
		return weight, ReasonDeliveryLocation, want != "" && have != "" && strings.EqualFold(want, have)
	})
}

// VolumeCoverageCriterion pontua quando o volume disponível cobre a quantidade
// pedida na mesma unidade.
func VolumeCoverageCriterion(weight float64) Criterion {
	return CriterionFunc(func(c Candidate) (float64, string, bool) {
		t := c.Demand.Terms()
		sameUnit := strings.EqualFold(strings.TrimSpace(t.Unit), strings.TrimSpace(c.Supply.Unit))
		return weight, ReasonVolumeCoverage, sameUnit && t.Quantity > 0 && c.Supply.AvailableVolume >= t.Quantity
	})
}
