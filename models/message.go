package models

import (
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation. Messages are append-only and
// ordered by Timestamp within their conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// PromptSegment is a role-tagged piece of the model prompt.
type PromptSegment struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
