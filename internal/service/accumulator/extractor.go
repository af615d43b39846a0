package accumulator

import (
	"context"
	"regexp"
	"strings"

	"github.com/jwalitptl/triage-api/internal/model"
)

// Extraction is what the extraction collaborator produces from one raw
// message: candidate symptom tokens plus any severity or duration mentions.
type Extraction struct {
	Symptoms []model.Symptom
	Severity model.Severity
	Duration string
}

// Extractor is the black-box extraction model contract. Implementations may
// call out to an NLP or speech service and must honor the context deadline.
type Extractor interface {
	Extract(ctx context.Context, rawInput string) (Extraction, error)
}

// KeywordExtractor is the built-in lexicon extractor used when no external
// extraction model is wired. Matching is deterministic and case-insensitive.
type KeywordExtractor struct{}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

var symptomLexicon = []struct {
	keywords []string
	name     string
	bodyPart string
}{
	{[]string{"chest pain", "pain in chest", "pain in my chest"}, "chest pain", "chest"},
	{[]string{"difficulty breathing", "can't breathe", "cannot breathe", "short of breath", "breathless"}, "difficulty breathing", "chest"},
	{[]string{"unconscious", "fainted", "passed out", "not waking"}, "unconsciousness", ""},
	{[]string{"bleeding", "blood loss"}, "bleeding", ""},
	{[]string{"seizure", "convulsion", "fits"}, "seizure", ""},
	{[]string{"fever", "temperature", "feverish"}, "fever", ""},
	{[]string{"cough", "coughing"}, "cough", "chest"},
	{[]string{"cold", "runny nose", "blocked nose"}, "cold", "nose"},
	{[]string{"headache", "head ache", "head pain"}, "headache", "head"},
	{[]string{"vomiting", "vomit", "throwing up"}, "vomiting", "stomach"},
	{[]string{"diarrhea", "diarrhoea", "loose motion"}, "diarrhea", "stomach"},
	{[]string{"rash", "skin rash", "itching"}, "rash", "skin"},
	{[]string{"dizzy", "dizziness", "giddy"}, "dizziness", "head"},
	{[]string{"tired", "fatigue", "weakness", "weak"}, "fatigue", ""},
	{[]string{"body pain", "body ache", "joint pain"}, "body pain", ""},
}

var characteristicWords = []string{
	"sharp", "dull", "burning", "throbbing", "persistent",
	"dry", "wet", "continuous", "intermittent", "radiating",
}

var durationPattern = regexp.MustCompile(`(?i)\b(?:for|since|past|last)?\s*(\d+|a|one|two|three|few)\s*(hour|day|week|month)s?\b`)

func (e *KeywordExtractor) Extract(_ context.Context, rawInput string) (Extraction, error) {
	text := strings.ToLower(rawInput)
	var out Extraction

	for _, entry := range symptomLexicon {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				out.Symptoms = append(out.Symptoms, model.Symptom{
					Name:            entry.name,
					BodyPart:        entry.bodyPart,
					Characteristics: characteristicsIn(text),
				})
				break
			}
		}
	}

	switch {
	case containsAny(text, "severe", "unbearable", "very bad", "worst"):
		out.Severity = model.SeveritySevere
	case containsAny(text, "moderate", "quite bad"):
		out.Severity = model.SeverityModerate
	case containsAny(text, "mild", "slight", "little"):
		out.Severity = model.SeverityMild
	}

	if m := durationPattern.FindStringSubmatch(text); m != nil {
		out.Duration = normalizeCount(m[1]) + " " + m[2] + maybePlural(m[1])
	} else if strings.Contains(text, "yesterday") {
		out.Duration = "1 day"
	} else if strings.Contains(text, "this morning") || strings.Contains(text, "today") {
		out.Duration = "under a day"
	}

	return out, nil
}

func characteristicsIn(text string) []string {
	var out []string
	for _, w := range characteristicWords {
		if strings.Contains(text, w) {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func normalizeCount(raw string) string {
	switch raw {
	case "a", "one":
		return "1"
	case "two":
		return "2"
	case "three":
		return "3"
	case "few":
		return "3"
	}
	return raw
}

func maybePlural(raw string) string {
	if raw == "a" || raw == "one" || raw == "1" {
		return ""
	}
	return "s"
}
