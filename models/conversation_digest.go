package models

import (
	"time"
)

// ConversationDigest is a periodic summary of one conversation, written
// by the batch job for the CRM dashboards.
type ConversationDigest struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Summary        string    `json:"summary"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	CreatedAt      time.Time `json:"created_at"`
}
