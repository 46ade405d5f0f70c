package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/sirupsen/logrus"
)

type ClientRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewClientRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *ClientRepository {
	return &ClientRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	c := &models.Client{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: c.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: c.GetSK()},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get client from DynamoDB")
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if result.Item == nil {
		return nil, nil // Client not found
	}

	var dbClient models.Client
	if err := attributevalue.UnmarshalMap(result.Item, &dbClient); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal client from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}

	return &dbClient, nil
}

// GetByEmail scans the table for a client record with the given email.
// Email lookups only happen on login and the social callback, so a filtered
// scan is acceptable without a GSI.
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :pk_prefix) AND email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "CLIENT#"},
			":email":     &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to scan for client by email")
		return nil, fmt.Errorf("failed to get client by email: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, nil
	}

	var dbClient models.Client
	if err := attributevalue.UnmarshalMap(result.Items[0], &dbClient); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}

	return &dbClient, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal client for DynamoDB")
		return fmt.Errorf("failed to marshal client: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: c.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: c.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if _, ok := err.(*types.ConditionalCheckFailedException); ok {
			return fmt.Errorf("client already exists")
		}
		r.logger.WithError(err).Error("Failed to create client in DynamoDB")
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

func (r *ClientRepository) UpdatePhoneNumber(ctx context.Context, id, phoneNumber string) error {
	c := &models.Client{ID: id}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: c.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: c.GetSK()},
		},
		UpdateExpression: aws.String("SET phone_number = :phone_number, updated_at = :updated_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":phone_number": &types.AttributeValueMemberS{Value: phoneNumber},
			":updated_at":   &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to update client phone number in DynamoDB")
		return fmt.Errorf("failed to update client phone number: %w", err)
	}

	return nil
}

// IncrementTokenCount atomically bumps the invalidation counter, revoking
// every refresh token issued before the bump. This is the only writer of
// token_count anywhere in the system.
func (r *ClientRepository) IncrementTokenCount(ctx context.Context, id string) error {
	c := &models.Client{ID: id}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: c.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: c.GetSK()},
		},
		UpdateExpression: aws.String("ADD token_count :inc"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to increment client token count in DynamoDB")
		return fmt.Errorf("failed to increment token count: %w", err)
	}

	return nil
}
