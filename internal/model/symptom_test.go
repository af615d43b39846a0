package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSymptomUnions(t *testing.T) {
	d := &SymptomData{}
	d.MergeSymptom(Symptom{Name: "headache", BodyPart: "head", Characteristics: []string{"throbbing"}})
	d.MergeSymptom(Symptom{Name: "headache", Onset: "yesterday", Characteristics: []string{"throbbing", "one-sided"}})

	assert.Len(t, d.Symptoms, 1)
	assert.Equal(t, "head", d.Symptoms[0].BodyPart)
	assert.Equal(t, "yesterday", d.Symptoms[0].Onset)
	assert.Equal(t, []string{"throbbing", "one-sided"}, d.Symptoms[0].Characteristics)
}

func TestMergeSymptomNeverOverwrites(t *testing.T) {
	d := &SymptomData{}
	d.MergeSymptom(Symptom{Name: "cough", BodyPart: "chest"})
	d.MergeSymptom(Symptom{Name: "cough", BodyPart: "throat"})

	assert.Equal(t, "chest", d.Symptoms[0].BodyPart)
}

func TestMergeSymptomAppendsUnknown(t *testing.T) {
	d := &SymptomData{}
	d.MergeSymptom(Symptom{Name: "fever"})
	d.MergeSymptom(Symptom{Name: "cough"})

	assert.Len(t, d.Symptoms, 2)
	assert.Equal(t, "fever", d.Symptoms[0].Name)
	assert.Equal(t, "cough", d.Symptoms[1].Name)
}

func TestMissingFieldPriority(t *testing.T) {
	d := &SymptomData{}
	assert.Equal(t, FieldSymptom, d.MissingField())
	assert.False(t, d.IsComplete())

	d.MergeSymptom(Symptom{Name: "fever"})
	assert.Equal(t, FieldSeverity, d.MissingField())

	d.Severity = SeverityModerate
	assert.Equal(t, FieldDuration, d.MissingField())

	d.Duration = "2 days"
	assert.Equal(t, "", d.MissingField())
	assert.True(t, d.IsComplete())
}

func TestCloneIsDeep(t *testing.T) {
	d := &SymptomData{
		Symptoms:   []Symptom{{Name: "fever", Characteristics: []string{"high"}}},
		Severity:   SeveritySevere,
		Duration:   "3 days",
		Extensions: map[string]string{"severity_conflict": "true"},
	}

	cp := d.Clone()
	cp.Symptoms[0].Characteristics[0] = "low"
	cp.Extensions["severity_conflict"] = "false"

	assert.Equal(t, "high", d.Symptoms[0].Characteristics[0])
	assert.Equal(t, "true", d.Extensions["severity_conflict"])
}
