package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 5, cfg.KnowledgeLimit)
}

func TestLoad_TemperatureFromEnv(t *testing.T) {
	t.Setenv("OPENAI_TEMPERATURE", "0.2")

	cfg := Load()

	assert.InDelta(t, 0.2, cfg.Temperature, 0.0001)
}

func TestLoad_TemperatureIgnoresGarbage(t *testing.T) {
	t.Setenv("OPENAI_TEMPERATURE", "warm")

	cfg := Load()

	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
}
