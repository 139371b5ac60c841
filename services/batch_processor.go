package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sashabaranov/go-openai"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/models"
)

// dynamoAPI is the slice of the DynamoDB client the batch job uses.
type dynamoAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// BatchProcessor periodically condenses recent conversations into short
// digests for the CRM dashboards. Runs out of band in cmd/batch.
type BatchProcessor struct {
	postgresDB    *sql.DB
	dynamoDB      dynamoAPI
	messagesTable string
	openaiClient  *openai.Client
}

func NewBatchProcessor(ctx context.Context, cfg config.Config) (*BatchProcessor, error) {
	dynamoClient, err := newDynamoClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamodb client: %w", err)
	}

	db, err := openPostgres(cfg.PostgresURI)
	if err != nil {
		return nil, err
	}

	return &BatchProcessor{
		postgresDB:    db,
		dynamoDB:      dynamoClient,
		messagesTable: cfg.MessagesTable,
		openaiClient:  openai.NewClient(cfg.OpenAIKey),
	}, nil
}

// ProcessConversations digests every conversation with activity in the
// last three hours. Per-conversation failures are logged and skipped so
// one bad transcript never stalls the batch.
func (bp *BatchProcessor) ProcessConversations(ctx context.Context) error {
	now := time.Now()
	threeHoursAgo := now.Add(-3 * time.Hour)

	conversationIDs, err := bp.getActiveConversations(ctx, threeHoursAgo)
	if err != nil {
		return fmt.Errorf("failed to get active conversations: %w", err)
	}

	for _, conversationID := range conversationIDs {
		messages, err := bp.getMessagesInPeriod(ctx, conversationID, threeHoursAgo, now)
		if err != nil {
			log.Printf("Error getting messages for conversation %s: %v", conversationID, err)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		summary, err := bp.summarizeMessages(ctx, messages)
		if err != nil {
			log.Printf("Error summarizing conversation %s: %v", conversationID, err)
			continue
		}

		digest := models.ConversationDigest{
			ConversationID: conversationID,
			Summary:        summary,
			StartTime:      threeHoursAgo,
			EndTime:        now,
		}
		if err := bp.saveDigest(ctx, digest); err != nil {
			log.Printf("Error saving digest for conversation %s: %v", conversationID, err)
			continue
		}

		log.Printf("Successfully digested conversation %s", conversationID)
	}

	return nil
}

func (bp *BatchProcessor) getActiveConversations(ctx context.Context, since time.Time) ([]string, error) {
	seen := make(map[string]bool)

	// Scan pages until LastEvaluatedKey is empty; a single page caps out
	// at 1 MB and would silently drop the rest.
	var startKey map[string]types.AttributeValue
	for {
		result, err := bp.dynamoDB.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(bp.messagesTable),
			FilterExpression: aws.String("#ts >= :ts"),
			ExpressionAttributeNames: map[string]string{
				"#ts": "Timestamp",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":ts": &types.AttributeValueMemberS{Value: FormatTimestamp(since)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB: %w", err)
		}

		for _, item := range result.Items {
			if id := stringAttr(item, "ConversationID"); id != "" {
				seen[id] = true
			}
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (bp *BatchProcessor) getMessagesInPeriod(ctx context.Context, conversationID string, start, end time.Time) ([]models.Message, error) {
	result, err := bp.dynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(bp.messagesTable),
		KeyConditionExpression: aws.String("ConversationID = :cid AND #ts BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "Timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid":   &types.AttributeValueMemberS{Value: conversationID},
			":start": &types.AttributeValueMemberS{Value: FormatTimestamp(start)},
			":end":   &types.AttributeValueMemberS{Value: FormatTimestamp(end)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return itemsToMessages(result.Items), nil
}

func (bp *BatchProcessor) summarizeMessages(ctx context.Context, messages []models.Message) (string, error) {
	openAIMessages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: "Summarize the following website chat for a sales team. " +
				"Name the visitor's questions, any product interest and any contact details mentioned.",
		},
	}
	for _, msg := range messages {
		openAIMessages = append(openAIMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := bp.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    openai.GPT4TurboPreview,
		Messages: openAIMessages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	return resp.Choices[0].Message.Content, nil
}

func (bp *BatchProcessor) saveDigest(ctx context.Context, digest models.ConversationDigest) error {
	query := `
        INSERT INTO conversation_digests
        (conversation_id, summary, start_time, end_time)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (conversation_id, start_time, end_time)
        DO UPDATE SET
            summary = EXCLUDED.summary
    `

	_, err := bp.postgresDB.ExecContext(ctx, query, digest.ConversationID, digest.Summary, digest.StartTime, digest.EndTime)
	if err != nil {
		return fmt.Errorf("failed to save digest: %w", err)
	}
	return nil
}
