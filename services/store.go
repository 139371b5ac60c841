package services

import (
	"context"
	"errors"

	"github.com/LexAiTools/proofofconcept-sub001/models"
)

// ErrConversationNotFound is returned by GetConversationMetadata when the
// id does not exist.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the persistence surface the chat flow depends on.
// Every call is an independent operation; there is no transaction spanning
// them. Callers treat failures as degraded persistence, not fatal errors.
type ConversationStore interface {
	CreateConversation(ctx context.Context, metadata map[string]string) (string, error)
	GetConversationMetadata(ctx context.Context, id string) (map[string]string, error)
	AppendMessage(ctx context.Context, conversationID, role, content string) error
	// ListRecentMessages returns the most recent limit messages, oldest first.
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	// SampleKnowledge returns up to limit knowledge entries. The sample is
	// an unconditional bounded fetch, not filtered by relevance.
	SampleKnowledge(ctx context.Context, limit int) ([]models.KnowledgeEntry, error)

	// CRM collaborator surface: the contact form and admin views.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	MergeConversationMetadata(ctx context.Context, conversationID string, fields map[string]string) error
	InsertKnowledgeEntry(ctx context.Context, entry models.KnowledgeEntry) error
}
