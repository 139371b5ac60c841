package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/LexAiTools/proofofconcept-sub001/config"
	"github.com/LexAiTools/proofofconcept-sub001/models"
)

// Store persists conversations and messages in DynamoDB and reads the
// knowledge base from Postgres (see knowledge_service.go).
type Store struct {
	db                 *dynamodb.Client
	pg                 *sql.DB
	conversationsTable string
	messagesTable      string
}

// NewStore builds the store from config. Table creation is best-effort:
// existing tables are left alone.
func NewStore(ctx context.Context, cfg config.Config) (*Store, error) {
	client, err := newDynamoClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamodb client: %w", err)
	}

	pg, err := openPostgres(cfg.PostgresURI)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:                 client,
		pg:                 pg,
		conversationsTable: cfg.ConversationsTable,
		messagesTable:      cfg.MessagesTable,
	}
	s.ensureTablesExist(ctx)
	return s, nil
}

func newDynamoClient(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: cfg.DynamoEndpoint}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.DynamoRegion),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
			},
		}),
	)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg), nil
}

func (s *Store) ensureTablesExist(ctx context.Context) {
	_, err := s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.conversationsTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("ID"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("ID"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		log.Printf("Table %s might already exist: %v", s.conversationsTable, err)
	}

	_, err = s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.messagesTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("ConversationID"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("Timestamp"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("ConversationID"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("Timestamp"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		log.Printf("Table %s might already exist: %v", s.messagesTable, err)
	}
}

// CreateConversation writes a new conversation row carrying the given
// metadata (language, created_at, lead fields) and returns its id.
func (s *Store) CreateConversation(ctx context.Context, metadata map[string]string) (string, error) {
	id := uuid.New().String()

	item := map[string]types.AttributeValue{
		"ID": &types.AttributeValueMemberS{Value: id},
	}
	for k, v := range metadata {
		item[k] = &types.AttributeValueMemberS{Value: v}
	}
	if _, ok := metadata["created_at"]; !ok {
		item["created_at"] = &types.AttributeValueMemberS{Value: FormatTimestamp(time.Now())}
	}

	_, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.conversationsTable),
		Item:      item,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetConversationMetadata returns the conversation's attribute map, or
// ErrConversationNotFound when the id does not exist.
func (s *Store) GetConversationMetadata(ctx context.Context, id string) (map[string]string, error) {
	result, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.conversationsTable),
		Key: map[string]types.AttributeValue{
			"ID": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(result.Item) == 0 {
		return nil, ErrConversationNotFound
	}

	metadata := make(map[string]string)
	for k, v := range result.Item {
		if k == "ID" {
			continue
		}
		if sv, ok := v.(*types.AttributeValueMemberS); ok {
			metadata[k] = sv.Value
		}
	}
	return metadata, nil
}

// AppendMessage writes one message row. Messages are immutable once
// written; the RFC3339Nano range key preserves append order.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	_, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.messagesTable),
		Item: map[string]types.AttributeValue{
			"ID":             &types.AttributeValueMemberS{Value: uuid.New().String()},
			"ConversationID": &types.AttributeValueMemberS{Value: conversationID},
			"Role":           &types.AttributeValueMemberS{Value: role},
			"Content":        &types.AttributeValueMemberS{Value: content},
			"Timestamp":      &types.AttributeValueMemberS{Value: FormatTimestamp(time.Now())},
		},
	})
	return err
}

// ListRecentMessages returns the most recent limit messages of the
// conversation, oldest first.
func (s *Store) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	result, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.messagesTable),
		KeyConditionExpression: aws.String("ConversationID = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: conversationID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}

	messages := itemsToMessages(result.Items)
	reverseMessages(messages)
	return messages, nil
}

// ListMessages returns the full ordered transcript of a conversation.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	result, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.messagesTable),
		KeyConditionExpression: aws.String("ConversationID = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: conversationID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return itemsToMessages(result.Items), nil
}

// MergeConversationMetadata merges the given fields into an existing
// conversation. The language attribute is never overwritten here; it is
// fixed at creation.
func (s *Store) MergeConversationMetadata(ctx context.Context, conversationID string, fields map[string]string) error {
	updateExpression := "SET"
	expressionAttributeValues := map[string]types.AttributeValue{}
	expressionAttributeNames := map[string]string{}

	i := 0
	for k, v := range fields {
		if k == "language" || k == "ID" {
			continue
		}
		placeholder := fmt.Sprintf(":v%d", i)
		name := fmt.Sprintf("#f%d", i)
		updateExpression += fmt.Sprintf(" %s = %s,", name, placeholder)
		expressionAttributeValues[placeholder] = &types.AttributeValueMemberS{Value: v}
		expressionAttributeNames[name] = k
		i++
	}
	if len(expressionAttributeValues) == 0 {
		return nil
	}
	updateExpression = updateExpression[:len(updateExpression)-1]

	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.conversationsTable),
		Key: map[string]types.AttributeValue{
			"ID": &types.AttributeValueMemberS{Value: conversationID},
		},
		UpdateExpression:          aws.String(updateExpression),
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		ConditionExpression:       aws.String("attribute_exists(ID)"),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return ErrConversationNotFound
	}
	return err
}

func itemsToMessages(items []map[string]types.AttributeValue) []models.Message {
	messages := make([]models.Message, 0, len(items))
	for _, item := range items {
		messages = append(messages, models.Message{
			ID:             stringAttr(item, "ID"),
			ConversationID: stringAttr(item, "ConversationID"),
			Role:           stringAttr(item, "Role"),
			Content:        stringAttr(item, "Content"),
			Timestamp:      ParseTimestamp(stringAttr(item, "Timestamp")),
		})
	}
	return messages
}

func stringAttr(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func reverseMessages(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
