package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/models"
	"github.com/LexAiTools/proofofconcept-sub001/services"
)

// ChatController relays visitor messages to the inference endpoint and
// streams the reply back as server-sent events while persisting both
// sides of the exchange.
type ChatController struct {
	store   services.ConversationStore
	gateway *services.CompletionGateway
	cfg     config.Config
}

func NewChatController(store services.ConversationStore, gateway *services.CompletionGateway, cfg config.Config) *ChatController {
	return &ChatController{store: store, gateway: gateway, cfg: cfg}
}

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversationId"`
}

type streamEvent struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
}

// HandleChat runs one chat turn: validate, resolve the conversation,
// persist the user message, build the prompt, stream the reply, persist
// the assistant message.
//
// Persistence is best effort throughout: a failing store call is logged
// and the visitor still gets an answer. The assistant message is written
// only after the upstream stream ends cleanly, so a truncated reply is
// never stored.
func (ctl *ChatController) HandleChat(c *gin.Context) {
	var request chatRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx := c.Request.Context()

	conversationID, language, history := ctl.resolveConversation(ctx, request)

	// Always save what the visitor sent, regardless of model outcome.
	if conversationID != "" {
		if err := ctl.store.AppendMessage(ctx, conversationID, models.RoleUser, request.Message); err != nil {
			log.Printf("Error saving user message: %v", err)
		}
	}

	knowledge, err := ctl.store.SampleKnowledge(ctx, ctl.cfg.KnowledgeLimit)
	if err != nil {
		log.Printf("Error sampling knowledge: %v", err)
		knowledge = nil
	}

	segments := services.BuildContext(ctl.cfg.SystemPrompt, language, knowledge, history, request.Message)

	streamCtx, cancel := context.WithTimeout(ctx, ctl.cfg.StreamTimeout)
	defer cancel()

	stream, err := ctl.gateway.StreamCompletion(streamCtx, segments)
	if err != nil {
		log.Printf("Error opening completion stream: %v", err)
		status, message := errorResponse(err, language)
		c.JSON(status, gin.H{"error": message})
		return
	}
	defer stream.Close()

	var full strings.Builder
	emitted := false

	for {
		select {
		case <-ctx.Done():
			// Client disconnected. Closing the stream aborts the
			// upstream request; nothing is persisted.
			return
		default:
		}

		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !emitted {
				log.Printf("Error before first delta: %v", err)
				status, message := errorResponse(err, language)
				c.JSON(status, gin.H{"error": message})
				return
			}
			// Mid-stream failure after bytes were relayed: stop without
			// an end marker, skip persistence. The client treats the
			// missing [DONE] as truncation.
			log.Printf("Stream interrupted after %d bytes: %v", full.Len(), err)
			return
		}

		if !emitted {
			writeSSEHeaders(c)
			emitted = true
		}
		payload, _ := json.Marshal(streamEvent{Content: delta, ConversationID: conversationID})
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()
		full.WriteString(delta)
	}

	if conversationID != "" && full.Len() > 0 {
		if err := ctl.store.AppendMessage(ctx, conversationID, models.RoleAssistant, full.String()); err != nil {
			log.Printf("Error saving assistant message: %v", err)
		}
	}

	if !emitted {
		writeSSEHeaders(c)
	}
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// resolveConversation loads the conversation named by the request, or
// creates one from the detected language of the first message. A create
// failure is non-fatal: the turn runs with an empty id and persistence is
// skipped for this run.
func (ctl *ChatController) resolveConversation(ctx context.Context, request chatRequest) (conversationID, language string, history []models.Message) {
	language = services.FallbackLanguage
	conversationID = request.ConversationID

	if conversationID != "" {
		metadata, err := ctl.store.GetConversationMetadata(ctx, conversationID)
		switch {
		case err == nil:
			if lang := metadata["language"]; lang != "" {
				language = lang
			}
			history, err = ctl.store.ListRecentMessages(ctx, conversationID, ctl.cfg.HistoryLimit)
			if err != nil {
				log.Printf("Error loading history for %s: %v", conversationID, err)
				history = nil
			}
			return conversationID, language, history
		case errors.Is(err, services.ErrConversationNotFound):
			// Unknown id from the client: start over.
			conversationID = ""
		default:
			// Store unavailable. Keep the id for best-effort appends and
			// fall back to detection for the language.
			log.Printf("Error loading conversation %s: %v", conversationID, err)
			return conversationID, services.DetectLanguage(request.Message), nil
		}
	}

	language = services.DetectLanguage(request.Message)
	id, err := ctl.store.CreateConversation(ctx, map[string]string{
		"language": language,
	})
	if err != nil {
		log.Printf("Error creating conversation: %v", err)
		return "", language, nil
	}
	return id, language, nil
}

func writeSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
}
