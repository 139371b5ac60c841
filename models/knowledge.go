package models

// KnowledgeEntry is a stored title/content pair used as grounding context
// for the assistant. Entries are global, not scoped to a conversation.
type KnowledgeEntry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
