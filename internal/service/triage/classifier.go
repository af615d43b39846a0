// Package triage classifies complete symptom profiles into risk tiers.
// The classifier is a pure function of its input: it performs no I/O and
// touches no shared state, so it is independently testable.
package triage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
)

type Classifier struct {
	rules     []Rule
	scorer    Scorer
	threshold float64
}

// NewClassifier builds a classifier with the ordered emergency rule table,
// a model stage, and the low-confidence escalation threshold.
func NewClassifier(scorer Scorer, threshold float64) *Classifier {
	return &Classifier{
		rules:     EmergencyRules(),
		scorer:    scorer,
		threshold: threshold,
	}
}

// Classify assesses a complete symptom profile. Calling it on incomplete
// data is a contract violation and returns an IncompleteInput error.
//
// Stage one checks the deterministic emergency table; any match
// short-circuits to EMERGENCY with confidence 1.0 and the rule name as the
// sole contributing factor. Safety-critical patterns are never downgraded
// by the model stage. Stage two scores the three tiers; if the winning
// confidence falls below the threshold the result is escalated one tier
// upward and annotated, never rounded down.
func (c *Classifier) Classify(data model.SymptomData) (model.Assessment, error) {
	if !data.IsComplete() {
		return model.Assessment{}, apperrors.IncompleteInput(
			fmt.Sprintf("missing field %q", data.MissingField()))
	}

	for _, rule := range c.rules {
		if rule.Match(data) {
			return model.Assessment{
				ID:                  uuid.New(),
				RiskLevel:           model.RiskEmergency,
				Confidence:          1.0,
				ContributingFactors: []string{rule.Name},
				Timestamp:           time.Now().UTC(),
			}, nil
		}
	}

	scores := c.scorer.Score(data)
	winner := winningTier(scores.ByTier)
	confidence := scores.ByTier[winner]
	factors := append([]string(nil), scores.TopFeatures...)

	if confidence < c.threshold && winner != model.RiskEmergency {
		escalated := winner.Escalate()
		factors = append(factors, fmt.Sprintf(
			"low_confidence_escalation: %s -> %s (confidence %.2f below threshold %.2f)",
			winner, escalated, confidence, c.threshold))
		winner = escalated
	}

	return model.Assessment{
		ID:                  uuid.New(),
		RiskLevel:           winner,
		Confidence:          confidence,
		ContributingFactors: factors,
		Timestamp:           time.Now().UTC(),
	}, nil
}

// ManualReviewAssessment builds the assessment attached to cases escalated
// to a human without a completed classification (expired sessions, budget
// overruns, retry exhaustion). Uncertainty biases toward a PHC visit.
func ManualReviewAssessment(reason string) model.Assessment {
	return model.Assessment{
		ID:                  uuid.New(),
		RiskLevel:           model.RiskPHCVisit,
		Confidence:          0,
		ContributingFactors: []string{"manual_review: " + reason},
		Timestamp:           time.Now().UTC(),
	}
}
