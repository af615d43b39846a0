package model

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the triage tier, ordered by urgency.
type RiskLevel string

const (
	RiskHomeCare  RiskLevel = "HOME_CARE"
	RiskPHCVisit  RiskLevel = "PHC_VISIT"
	RiskEmergency RiskLevel = "EMERGENCY"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskHomeCare, RiskPHCVisit, RiskEmergency:
		return true
	}
	return false
}

// Rank orders tiers for the canonical case ordering: more urgent sorts first.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskEmergency:
		return 0
	case RiskPHCVisit:
		return 1
	default:
		return 2
	}
}

// Escalate rounds one tier upward in urgency. EMERGENCY is a fixed point.
func (r RiskLevel) Escalate() RiskLevel {
	switch r {
	case RiskHomeCare:
		return RiskPHCVisit
	case RiskPHCVisit:
		return RiskEmergency
	default:
		return RiskEmergency
	}
}

// Assessment is the immutable outcome of one classification. A correction
// never edits an existing assessment; it produces a new one linked to the
// same case.
type Assessment struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	RiskLevel           RiskLevel `json:"risk_level" db:"risk_level"`
	Confidence          float64   `json:"confidence" db:"confidence"`
	ContributingFactors []string  `json:"contributing_factors" db:"-"`
	Timestamp           time.Time `json:"timestamp" db:"created_at"`
}

// Recommendations are per-tier care guidance delivered alongside an
// assessment on the originating channel.
func (a Assessment) Recommendations() []string {
	switch a.RiskLevel {
	case RiskEmergency:
		return []string{
			"Seek emergency care immediately.",
			"Call the local emergency number or go to the nearest hospital.",
			"Do not wait for a callback.",
		}
	case RiskPHCVisit:
		return []string{
			"Visit your nearest primary health centre within 24 hours.",
			"Carry any medicines you are currently taking.",
			"A health worker will follow up with you.",
		}
	default:
		return []string{
			"Rest and take fluids.",
			"Monitor your symptoms for the next 48 hours.",
			"Contact us again if symptoms worsen.",
		}
	}
}
