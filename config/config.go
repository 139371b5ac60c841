package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the services need. Loaded once in main and
// passed into constructors so tests can substitute endpoints.
type Config struct {
	Port string

	// Inference endpoint (OpenAI-compatible).
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
	Temperature   float32

	// Prompt assembly.
	SystemPrompt   string
	HistoryLimit   int
	KnowledgeLimit int

	// Upper bound on one streamed completion, end to end.
	StreamTimeout time.Duration

	// Conversation log (DynamoDB).
	DynamoEndpoint     string
	DynamoRegion       string
	ConversationsTable string
	MessagesTable      string

	// Knowledge base and digests (Postgres).
	PostgresURI string
}

const defaultSystemPrompt = "You are the assistant on the LexAiTools website. " +
	"Answer questions about the product using only the reference entries provided below. " +
	"If the reference entries do not cover the question, say you do not know and " +
	"suggest leaving contact details instead of guessing. Never invent prices, " +
	"features or dates."

// Load reads configuration from the environment, falling back to defaults
// suitable for local development.
func Load() Config {
	return Config{
		Port:               getEnv("PORT", "8080"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:              getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature:        getEnvFloat("OPENAI_TEMPERATURE", 0.7),
		SystemPrompt:       getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		HistoryLimit:       getEnvInt("HISTORY_LIMIT", 10),
		KnowledgeLimit:     getEnvInt("KNOWLEDGE_LIMIT", 5),
		StreamTimeout:      time.Duration(getEnvInt("STREAM_TIMEOUT_SECONDS", 120)) * time.Second,
		DynamoEndpoint:     getEnv("DYNAMODB_ENDPOINT", "http://localhost:8000"),
		DynamoRegion:       getEnv("AWS_REGION", "us-east-1"),
		ConversationsTable: getEnv("CONVERSATIONS_TABLE", "Conversations"),
		MessagesTable:      getEnv("MESSAGES_TABLE", "Messages"),
		PostgresURI:        getEnv("POSTGRES_URI", "host=localhost port=5432 user=postgres password=postgres dbname=lexaitools sslmode=disable"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
