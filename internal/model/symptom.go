package model

// Severity is the self-reported intensity of a symptom profile.
type Severity string

const (
	SeverityMild     Severity = "MILD"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// Symptom is one reported complaint. Characteristics accumulate across turns.
type Symptom struct {
	Name            string   `json:"name"`
	BodyPart        string   `json:"body_part,omitempty"`
	Onset           string   `json:"onset,omitempty"`
	Characteristics []string `json:"characteristics,omitempty"`
}

// Missing-field identifiers, in clarification priority order.
const (
	FieldSymptom  = "symptom"
	FieldSeverity = "severity"
	FieldDuration = "duration"
)

// SymptomData is the accumulated profile for one session. It is mutated only
// by the accumulator; the classifier and case engine read snapshots.
type SymptomData struct {
	Symptoms   []Symptom         `json:"symptoms"`
	Duration   string            `json:"duration,omitempty"`
	Severity   Severity          `json:"severity,omitempty"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// MergeSymptom merges a newly extracted symptom by name. Later detail for an
// already-known symptom is unioned, never overwritten, so a repeated mention
// cannot erase earlier detail. Unknown names append, preserving report order.
func (d *SymptomData) MergeSymptom(s Symptom) {
	for i := range d.Symptoms {
		if d.Symptoms[i].Name != s.Name {
			continue
		}
		if d.Symptoms[i].BodyPart == "" {
			d.Symptoms[i].BodyPart = s.BodyPart
		}
		if d.Symptoms[i].Onset == "" {
			d.Symptoms[i].Onset = s.Onset
		}
		d.Symptoms[i].Characteristics = unionStrings(d.Symptoms[i].Characteristics, s.Characteristics)
		return
	}
	d.Symptoms = append(d.Symptoms, s)
}

// MissingField returns the highest-priority field still missing
// (symptom identity > severity > duration), or "" when nothing is missing.
func (d *SymptomData) MissingField() string {
	if len(d.Symptoms) == 0 {
		return FieldSymptom
	}
	if !d.Severity.Valid() {
		return FieldSeverity
	}
	if d.Duration == "" {
		return FieldDuration
	}
	return ""
}

// IsComplete reports whether the profile can be classified: at least one
// symptom, an assigned severity, and no clarification still outstanding.
func (d *SymptomData) IsComplete() bool {
	return d.MissingField() == ""
}

// HasSymptom reports whether a symptom with the given name was reported.
func (d *SymptomData) HasSymptom(name string) bool {
	for i := range d.Symptoms {
		if d.Symptoms[i].Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy for handing to the classifier and case engine.
func (d *SymptomData) Clone() SymptomData {
	out := SymptomData{
		Duration: d.Duration,
		Severity: d.Severity,
	}
	if len(d.Symptoms) > 0 {
		out.Symptoms = make([]Symptom, len(d.Symptoms))
		for i, s := range d.Symptoms {
			cp := s
			cp.Characteristics = append([]string(nil), s.Characteristics...)
			out.Symptoms[i] = cp
		}
	}
	if len(d.Extensions) > 0 {
		out.Extensions = make(map[string]string, len(d.Extensions))
		for k, v := range d.Extensions {
			out.Extensions[k] = v
		}
	}
	return out
}

func unionStrings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range incoming {
		if !seen[v] {
			existing = append(existing, v)
			seen[v] = true
		}
	}
	return existing
}
