package triage

import (
	"sort"
	"strings"

	"github.com/jwalitptl/triage-api/internal/model"
)

// Scores is a model-stage result: a normalized score per tier and the
// features that contributed to the winning tier.
type Scores struct {
	ByTier      map[model.RiskLevel]float64
	TopFeatures []string
}

// Scorer is the pluggable probabilistic stage. Implementations must be
// deterministic for a given input; their accuracy is not part of the
// contract, only the scoring shape.
type Scorer interface {
	Score(data model.SymptomData) Scores
}

type tierWeights struct {
	home, phc, emergency float64
}

// symptomWeights is a hand-tuned feature table for the default scorer.
var symptomWeights = map[string]tierWeights{
	"cough":      {home: 1.2, phc: 0.4},
	"cold":       {home: 1.2, phc: 0.2},
	"headache":   {home: 1.0, phc: 0.5},
	"fever":      {home: 0.5, phc: 1.0, emergency: 0.2},
	"vomiting":   {home: 0.3, phc: 1.0, emergency: 0.3},
	"diarrhea":   {home: 0.3, phc: 1.0, emergency: 0.3},
	"rash":       {home: 0.8, phc: 0.6},
	"fatigue":    {home: 1.0, phc: 0.4},
	"dizziness":  {home: 0.4, phc: 0.9, emergency: 0.3},
	"chest pain": {phc: 0.8, emergency: 1.2},
	"bleeding":   {phc: 0.7, emergency: 1.0},
	"body pain":  {home: 1.0, phc: 0.4},
}

var severityWeights = map[model.Severity]tierWeights{
	model.SeverityMild:     {home: 1.5, phc: 0.3},
	model.SeverityModerate: {home: 0.4, phc: 1.3, emergency: 0.2},
	model.SeveritySevere:   {phc: 0.8, emergency: 1.5},
}

// WeightedScorer is the default model stage: a linear feature scorer over
// symptom names, severity, and duration, normalized to a distribution over
// the three tiers.
type WeightedScorer struct{}

func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{}
}

func (s *WeightedScorer) Score(data model.SymptomData) Scores {
	type contribution struct {
		feature string
		weights tierWeights
	}
	var contributions []contribution

	for _, sym := range data.Symptoms {
		name := strings.ToLower(sym.Name)
		w, ok := symptomWeights[name]
		if !ok {
			// unseen symptom: mild pull toward a PHC visit, never home care
			w = tierWeights{phc: 0.6, emergency: 0.1}
		}
		contributions = append(contributions, contribution{feature: "symptom:" + name, weights: w})
	}

	if w, ok := severityWeights[data.Severity]; ok {
		contributions = append(contributions, contribution{
			feature: "severity:" + strings.ToLower(string(data.Severity)),
			weights: w,
		})
	}

	if prolonged(data.Duration) {
		contributions = append(contributions, contribution{
			feature: "duration:prolonged",
			weights: tierWeights{phc: 0.8, emergency: 0.2},
		})
	}

	// conflicting evidence recorded by the accumulator biases upward
	if data.Extensions["severity_conflict"] == "true" {
		contributions = append(contributions, contribution{
			feature: "conflict:severity",
			weights: tierWeights{phc: 0.5, emergency: 0.5},
		})
	}

	totals := map[model.RiskLevel]float64{
		model.RiskHomeCare:  0,
		model.RiskPHCVisit:  0,
		model.RiskEmergency: 0,
	}
	for _, c := range contributions {
		totals[model.RiskHomeCare] += c.weights.home
		totals[model.RiskPHCVisit] += c.weights.phc
		totals[model.RiskEmergency] += c.weights.emergency
	}

	sum := totals[model.RiskHomeCare] + totals[model.RiskPHCVisit] + totals[model.RiskEmergency]
	if sum > 0 {
		for tier := range totals {
			totals[tier] /= sum
		}
	}

	winner := winningTier(totals)
	var features []struct {
		name   string
		weight float64
	}
	for _, c := range contributions {
		w := weightFor(c.weights, winner)
		if w > 0 {
			features = append(features, struct {
				name   string
				weight float64
			}{c.feature, w})
		}
	}
	sort.SliceStable(features, func(i, j int) bool { return features[i].weight > features[j].weight })

	top := make([]string, 0, 3)
	for i, f := range features {
		if i == 3 {
			break
		}
		top = append(top, f.name)
	}

	return Scores{ByTier: totals, TopFeatures: top}
}

// winningTier picks the highest-scoring tier; ties resolve toward the more
// urgent tier, in line with the caution-first policy.
func winningTier(totals map[model.RiskLevel]float64) model.RiskLevel {
	ordered := []model.RiskLevel{model.RiskEmergency, model.RiskPHCVisit, model.RiskHomeCare}
	best := ordered[0]
	for _, tier := range ordered[1:] {
		if totals[tier] > totals[best] {
			best = tier
		}
	}
	return best
}

func weightFor(w tierWeights, tier model.RiskLevel) float64 {
	switch tier {
	case model.RiskEmergency:
		return w.emergency
	case model.RiskPHCVisit:
		return w.phc
	default:
		return w.home
	}
}

func prolonged(duration string) bool {
	d := strings.ToLower(duration)
	return strings.Contains(d, "week") || strings.Contains(d, "month")
}
