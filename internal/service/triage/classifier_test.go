package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/triage-api/internal/model"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

// stubScorer returns a fixed distribution so threshold behavior can be
// pinned without depending on lexicon weights.
type stubScorer struct {
	scores Scores
}

func (s stubScorer) Score(model.SymptomData) Scores { return s.scores }

func completeProfile(name string, severity model.Severity) model.SymptomData {
	return model.SymptomData{
		Symptoms: []model.Symptom{{Name: name}},
		Severity: severity,
		Duration: "2 days",
	}
}

func TestClassifyIncompleteInput(t *testing.T) {
	c := NewClassifier(NewWeightedScorer(), 0.6)

	_, err := c.Classify(model.SymptomData{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIncompleteInput, apperrors.CodeOf(err))
}

func TestClassifyEmergencyRulePrecedence(t *testing.T) {
	// scorer would say HOME_CARE with total certainty, but the rule table
	// is checked first and wins
	c := NewClassifier(stubScorer{Scores{
		ByTier: map[model.RiskLevel]float64{
			model.RiskHomeCare:  1.0,
			model.RiskPHCVisit:  0,
			model.RiskEmergency: 0,
		},
	}}, 0.6)

	a, err := c.Classify(completeProfile("chest pain", model.SeveritySevere))
	require.NoError(t, err)
	assert.Equal(t, model.RiskEmergency, a.RiskLevel)
	assert.Equal(t, 1.0, a.Confidence)
	assert.Equal(t, []string{"severe chest pain rule"}, a.ContributingFactors)
}

func TestClassifyRuleIgnoresSeverityForBreathing(t *testing.T) {
	c := NewClassifier(NewWeightedScorer(), 0.6)

	a, err := c.Classify(completeProfile("difficulty breathing", model.SeverityMild))
	require.NoError(t, err)
	assert.Equal(t, model.RiskEmergency, a.RiskLevel)
	assert.Equal(t, 1.0, a.Confidence)
}

func TestClassifyLowConfidenceEscalates(t *testing.T) {
	c := NewClassifier(stubScorer{Scores{
		ByTier: map[model.RiskLevel]float64{
			model.RiskHomeCare:  0.4,
			model.RiskPHCVisit:  0.35,
			model.RiskEmergency: 0.25,
		},
		TopFeatures: []string{"symptom:runny nose"},
	}}, 0.6)

	a, err := c.Classify(completeProfile("runny nose", model.SeverityMild))
	require.NoError(t, err)

	// escalated one tier up, confidence reported as computed, annotated
	assert.Equal(t, model.RiskPHCVisit, a.RiskLevel)
	assert.Equal(t, 0.4, a.Confidence)
	require.Len(t, a.ContributingFactors, 2)
	assert.Contains(t, a.ContributingFactors[1], "low_confidence_escalation: HOME_CARE -> PHC_VISIT")
	assert.Contains(t, a.ContributingFactors[1], "below threshold 0.60")
}

func TestClassifyLowConfidenceEmergencyStays(t *testing.T) {
	c := NewClassifier(stubScorer{Scores{
		ByTier: map[model.RiskLevel]float64{
			model.RiskHomeCare:  0.3,
			model.RiskPHCVisit:  0.3,
			model.RiskEmergency: 0.4,
		},
	}}, 0.6)

	a, err := c.Classify(completeProfile("stomach ache", model.SeverityModerate))
	require.NoError(t, err)
	assert.Equal(t, model.RiskEmergency, a.RiskLevel)
	for _, f := range a.ContributingFactors {
		assert.NotContains(t, f, "low_confidence_escalation")
	}
}

func TestClassifyConfidentResultNotEscalated(t *testing.T) {
	c := NewClassifier(stubScorer{Scores{
		ByTier: map[model.RiskLevel]float64{
			model.RiskHomeCare:  0.8,
			model.RiskPHCVisit:  0.15,
			model.RiskEmergency: 0.05,
		},
		TopFeatures: []string{"symptom:runny nose"},
	}}, 0.6)

	a, err := c.Classify(completeProfile("runny nose", model.SeverityMild))
	require.NoError(t, err)
	assert.Equal(t, model.RiskHomeCare, a.RiskLevel)
	assert.Equal(t, 0.8, a.Confidence)
}

func TestManualReviewAssessment(t *testing.T) {
	a := ManualReviewAssessment("session expired with partial data")
	assert.Equal(t, model.RiskPHCVisit, a.RiskLevel)
	assert.Zero(t, a.Confidence)
	require.Len(t, a.ContributingFactors, 1)
	assert.Equal(t, "manual_review: session expired with partial data", a.ContributingFactors[0])
}

func TestEscalateFixedPoint(t *testing.T) {
	assert.Equal(t, model.RiskPHCVisit, model.RiskHomeCare.Escalate())
	assert.Equal(t, model.RiskEmergency, model.RiskPHCVisit.Escalate())
	assert.Equal(t, model.RiskEmergency, model.RiskEmergency.Escalate())
}
