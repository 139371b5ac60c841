package services

import (
	"fmt"
	"strings"

	"github.com/LexAiTools/proofofconcept-sub001/models"
)

// BuildContext assembles the full model prompt: one system segment, the
// stored history in order, then the new user message. Pure and
// deterministic; all selection policy (history and knowledge limits)
// lives with the store calls, not here.
func BuildContext(systemPrompt, languageCode string, knowledge []models.KnowledgeEntry, history []models.Message, newMessage string) []models.PromptSegment {
	segments := make([]models.PromptSegment, 0, len(history)+2)
	segments = append(segments, models.PromptSegment{
		Role:    models.RoleSystem,
		Content: buildSystemContent(systemPrompt, languageCode, knowledge),
	})

	for _, msg := range history {
		segments = append(segments, models.PromptSegment{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	segments = append(segments, models.PromptSegment{
		Role:    models.RoleUser,
		Content: newMessage,
	})
	return segments
}

// buildSystemContent combines the base instructions, the language
// directive and the knowledge block. The language is stated declaratively
// so replies stay in the conversation's language even when a later user
// turn is ambiguous or switches languages.
func buildSystemContent(systemPrompt, languageCode string, knowledge []models.KnowledgeEntry) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString(fmt.Sprintf("\n\nAlways respond in %s, regardless of the language of the user's message.", LanguageName(languageCode)))

	if len(knowledge) > 0 {
		b.WriteString("\n\nReference entries:\n\n")
		for i, entry := range knowledge {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(entry.Title)
			b.WriteString(": ")
			b.WriteString(entry.Content)
		}
	}

	return b.String()
}
