package models

import (
	"time"
)

// Conversation is the durable unit binding a message log and a fixed
// language tag. Lead fields (name, email, phone) are merged into Metadata
// later by the contact form; language is set once at creation.
type Conversation struct {
	ID        string            `json:"id"`
	Language  string            `json:"language"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
