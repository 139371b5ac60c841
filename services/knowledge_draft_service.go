package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/models"
)

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// KnowledgeDrafter asks the inference API to draft a knowledge entry on a
// given topic. The draft lands in the knowledge table for admin curation;
// it is not served to visitors until reviewed.
type KnowledgeDrafter struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	model   string
}

func NewKnowledgeDrafter(cfg config.Config) *KnowledgeDrafter {
	return &KnowledgeDrafter{
		client:  resty.New(),
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		apiKey:  cfg.OpenAIKey,
		model:   cfg.Model,
	}
}

// DraftEntry returns a model-written knowledge entry for the topic. The
// first line of the reply becomes the title, the rest the content.
func (d *KnowledgeDrafter) DraftEntry(ctx context.Context, topic string) (models.KnowledgeEntry, error) {
	if d.apiKey == "" {
		return models.KnowledgeEntry{}, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	requestBody := map[string]interface{}{
		"model": d.model,
		"messages": []models.PromptSegment{
			{
				Role: models.RoleSystem,
				Content: "Write a short factual knowledge-base entry for a product FAQ. " +
					"First line: a short title. Remaining lines: the content. Be precise and concise.",
			},
			{
				Role:    models.RoleUser,
				Content: topic,
			},
		},
		"temperature": 0.2,
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+d.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(requestBody).
		Post(d.baseURL + "/chat/completions")
	if err != nil {
		return models.KnowledgeEntry{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return models.KnowledgeEntry{}, fmt.Errorf("failed to draft entry, status: %d", resp.StatusCode())
	}

	var result completionResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return models.KnowledgeEntry{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return models.KnowledgeEntry{}, fmt.Errorf("no content in response")
	}

	return splitDraft(result.Choices[0].Message.Content, topic), nil
}

func splitDraft(text, topic string) models.KnowledgeEntry {
	text = strings.TrimSpace(text)
	title, content, found := strings.Cut(text, "\n")
	if !found || strings.TrimSpace(content) == "" {
		return models.KnowledgeEntry{Title: topic, Content: text}
	}
	return models.KnowledgeEntry{
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(content),
	}
}
