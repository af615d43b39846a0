package triage

import (
	"strings"

	"github.com/jwalitptl/triage-api/internal/model"
)

// Rule is one entry in the deterministic emergency table. Rules are checked
// in order before any model scoring and always take precedence over it.
type Rule struct {
	Name  string
	Match func(data model.SymptomData) bool
}

// EmergencyRules is the ordered safety-critical rule table. A match
// short-circuits classification to EMERGENCY with confidence 1.0.
func EmergencyRules() []Rule {
	return []Rule{
		{
			Name: "severe chest pain rule",
			Match: func(d model.SymptomData) bool {
				return d.Severity == model.SeveritySevere && hasSymptomLike(d, "chest pain")
			},
		},
		{
			Name: "unconsciousness rule",
			Match: func(d model.SymptomData) bool {
				return hasSymptomLike(d, "unconscious")
			},
		},
		{
			Name: "severe bleeding rule",
			Match: func(d model.SymptomData) bool {
				return d.Severity == model.SeveritySevere && hasSymptomLike(d, "bleeding")
			},
		},
		{
			Name: "difficulty breathing rule",
			Match: func(d model.SymptomData) bool {
				return hasSymptomLike(d, "difficulty breathing") || hasSymptomLike(d, "breathless")
			},
		},
		{
			Name: "seizure rule",
			Match: func(d model.SymptomData) bool {
				return hasSymptomLike(d, "seizure") || hasSymptomLike(d, "convulsion")
			},
		},
	}
}

func hasSymptomLike(d model.SymptomData, fragment string) bool {
	for i := range d.Symptoms {
		if strings.Contains(strings.ToLower(d.Symptoms[i].Name), fragment) {
			return true
		}
	}
	return false
}
