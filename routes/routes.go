package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/LexAiTools/proofofconcept-sub001/controllers"
	"github.com/LexAiTools/proofofconcept-sub001/middlewares"
)

func SetupRouter(chat *controllers.ChatController, crm *controllers.CRMController) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.Logger())
	r.Use(middlewares.CORS())

	// Streamed chat turn
	r.POST("/chat", chat.HandleChat)

	// Contact form merges lead fields into a conversation
	r.POST("/chat/lead", crm.HandleLeadMerge)

	// Admin transcript view
	r.GET("/chat/conversations", crm.HandleTranscript)

	// Draft a knowledge entry for curation
	r.POST("/knowledge/draft", crm.HandleKnowledgeDraft)

	return r
}
