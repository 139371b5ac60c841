package main

import (
	"context"
	"log"
	"time"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/services"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var processor *services.BatchProcessor
	var err error

	for i := 0; i < 3; i++ {
		processor, err = services.NewBatchProcessor(ctx, cfg)
		if err == nil {
			break
		}
		log.Printf("Attempt %d: Failed to create batch processor: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("Failed to create batch processor after retries: %v", err)
	}

	log.Println("Starting conversation digest service...")

	if err := processor.ProcessConversations(ctx); err != nil {
		log.Printf("Error in initial processing: %v", err)
	}

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		log.Println("Starting scheduled digest run...")
		if err := processor.ProcessConversations(ctx); err != nil {
			log.Printf("Error digesting conversations: %v", err)
		}
		log.Println("Digest run completed")
	}
}
