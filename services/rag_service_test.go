package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexAiTools/proofofconcept-sub001/models"
)

func TestBuildContext(t *testing.T) {
	t.Parallel()

	knowledge := []models.KnowledgeEntry{
		{Title: "Pricing", Content: "The app costs 49 PLN per month."},
		{Title: "Trial", Content: "There is a 14 day free trial."},
	}
	history := []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleAssistant, Content: "Hi, how can I help?"},
	}

	segments := BuildContext("Base instructions.", "pl", knowledge, history, "Ile kosztuje aplikacja?")

	require.Len(t, segments, 4)

	system := segments[0]
	assert.Equal(t, models.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Base instructions.")
	assert.Contains(t, system.Content, "Always respond in Polish")
	assert.Contains(t, system.Content, "Pricing: The app costs 49 PLN per month.")
	assert.Contains(t, system.Content, "Trial: There is a 14 day free trial.")
	// Entries joined by a blank line.
	assert.Contains(t, system.Content, "per month.\n\nTrial:")

	assert.Equal(t, models.RoleUser, segments[1].Role)
	assert.Equal(t, "Hello", segments[1].Content)
	assert.Equal(t, models.RoleAssistant, segments[2].Role)
	assert.Equal(t, "Hi, how can I help?", segments[2].Content)

	last := segments[3]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Equal(t, "Ile kosztuje aplikacja?", last.Content)
}

func TestBuildContext_NoKnowledge(t *testing.T) {
	t.Parallel()

	segments := BuildContext("Base instructions.", "en", nil, nil, "Hi")

	require.Len(t, segments, 2)
	assert.NotContains(t, segments[0].Content, "Reference entries")
	assert.Contains(t, segments[0].Content, "Always respond in English")
	assert.Equal(t, "Hi", segments[1].Content)
}

func TestBuildContext_Deterministic(t *testing.T) {
	t.Parallel()

	knowledge := []models.KnowledgeEntry{{Title: "A", Content: "B"}}
	history := []models.Message{{Role: models.RoleUser, Content: "x"}}

	first := BuildContext("p", "de", knowledge, history, "y")
	second := BuildContext("p", "de", knowledge, history, "y")
	assert.Equal(t, first, second)
}

func TestBuildContext_HistoryOrderPreserved(t *testing.T) {
	t.Parallel()

	history := []models.Message{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
	}

	segments := BuildContext("p", "en", nil, history, "four")

	require.Len(t, segments, 5)
	assert.Equal(t, "one", segments[1].Content)
	assert.Equal(t, "two", segments[2].Content)
	assert.Equal(t, "three", segments[3].Content)
	assert.Equal(t, "four", segments[4].Content)
}
