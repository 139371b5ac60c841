package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LexAiTools/proofofconcept-sub001/models"
	"github.com/LexAiTools/proofofconcept-sub001/services"
)

// CRMController serves the thin endpoints the contact form and admin
// views call: lead capture into conversation metadata, transcript reads
// and knowledge drafting.
type CRMController struct {
	store   services.ConversationStore
	drafter *services.KnowledgeDrafter
}

func NewCRMController(store services.ConversationStore, drafter *services.KnowledgeDrafter) *CRMController {
	return &CRMController{store: store, drafter: drafter}
}

// HandleLeadMerge merges contact-form fields into a conversation's
// metadata. The language field is fixed at creation and never touched.
func (ctl *CRMController) HandleLeadMerge(c *gin.Context) {
	var request struct {
		ConversationID string `json:"conversationId" binding:"required"`
		Name           string `json:"name"`
		Email          string `json:"email"`
		Phone          string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return
	}

	fields := map[string]string{}
	if request.Name != "" {
		fields["name"] = request.Name
	}
	if request.Email != "" {
		fields["email"] = request.Email
	}
	if request.Phone != "" {
		fields["phone"] = request.Phone
	}

	err := ctl.store.MergeConversationMetadata(c.Request.Context(), request.ConversationID, fields)
	if errors.Is(err, services.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		log.Printf("Error merging lead fields into %s: %v", request.ConversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation updated successfully"})
}

// HandleTranscript returns the full ordered message list of one
// conversation for admin review.
func (ctl *CRMController) HandleTranscript(c *gin.Context) {
	conversationID := c.Query("conversationId")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return
	}

	metadata, err := ctl.store.GetConversationMetadata(c.Request.Context(), conversationID)
	if errors.Is(err, services.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}

	messages, err := ctl.store.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		log.Printf("Error fetching transcript for %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}

	conversation := models.Conversation{
		ID:        conversationID,
		Language:  metadata["language"],
		Metadata:  metadata,
		CreatedAt: services.ParseTimestamp(metadata["created_at"]),
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conversation, "messages": messages})
}

// HandleKnowledgeDraft asks the model to draft a knowledge entry on a
// topic and stores it for curation.
func (ctl *CRMController) HandleKnowledgeDraft(c *gin.Context) {
	var request struct {
		Topic string `json:"topic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}

	entry, err := ctl.drafter.DraftEntry(c.Request.Context(), request.Topic)
	if err != nil {
		log.Printf("Error drafting knowledge entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to draft entry"})
		return
	}

	if err := ctl.store.InsertKnowledgeEntry(c.Request.Context(), entry); err != nil {
		log.Printf("Error storing knowledge entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store entry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}
