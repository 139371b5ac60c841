package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/controllers"
	"github.com/LexAiTools/proofofconcept-sub001/routes"
	"github.com/LexAiTools/proofofconcept-sub001/services"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	cfg := config.Load()

	store, err := services.NewStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	gateway := services.NewCompletionGateway(cfg)
	drafter := services.NewKnowledgeDrafter(cfg)

	chat := controllers.NewChatController(store, gateway, cfg)
	crm := controllers.NewCRMController(store, drafter)

	router := routes.SetupRouter(chat, crm)

	addr := ":" + cfg.Port
	log.Printf("Server starting on port %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
