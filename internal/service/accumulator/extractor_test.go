package accumulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/triage-api/internal/model"
)

func TestKeywordExtractorSymptoms(t *testing.T) {
	e := NewKeywordExtractor()

	out, err := e.Extract(context.Background(), "I have a FEVER and I keep coughing")
	require.NoError(t, err)
	require.Len(t, out.Symptoms, 2)
	assert.Equal(t, "fever", out.Symptoms[0].Name)
	assert.Equal(t, "cough", out.Symptoms[1].Name)
	assert.Equal(t, "chest", out.Symptoms[1].BodyPart)
}

func TestKeywordExtractorSeverity(t *testing.T) {
	e := NewKeywordExtractor()

	out, err := e.Extract(context.Background(), "the pain is unbearable")
	require.NoError(t, err)
	assert.Equal(t, model.SeveritySevere, out.Severity)

	out, err = e.Extract(context.Background(), "just a slight headache")
	require.NoError(t, err)
	assert.Equal(t, model.SeverityMild, out.Severity)

	out, err = e.Extract(context.Background(), "I feel unwell")
	require.NoError(t, err)
	assert.Empty(t, out.Severity)
}

func TestKeywordExtractorDuration(t *testing.T) {
	e := NewKeywordExtractor()

	cases := map[string]string{
		"coughing for 3 days":          "3 days",
		"headache since a week":        "1 week",
		"fever from yesterday":         "1 day",
		"started vomiting today":       "under a day",
		"dizzy for the past few weeks": "3 weeks",
	}
	for input, want := range cases {
		out, err := e.Extract(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, want, out.Duration, "input %q", input)
	}
}

func TestKeywordExtractorCharacteristics(t *testing.T) {
	e := NewKeywordExtractor()

	out, err := e.Extract(context.Background(), "a sharp persistent chest pain")
	require.NoError(t, err)
	require.Len(t, out.Symptoms, 1)
	assert.ElementsMatch(t, []string{"sharp", "persistent"}, out.Symptoms[0].Characteristics)
}
