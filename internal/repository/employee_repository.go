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

type EmployeeRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewEmployeeRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *EmployeeRepository {
	return &EmployeeRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	e := &models.Employee{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: e.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: e.GetSK()},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get employee from DynamoDB")
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	if result.Item == nil {
		return nil, nil // Employee not found
	}

	var dbEmployee models.Employee
	if err := attributevalue.UnmarshalMap(result.Item, &dbEmployee); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal employee from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal employee: %w", err)
	}

	return &dbEmployee, nil
}

func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :pk_prefix) AND email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "EMPLOYEE#"},
			":email":     &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to scan for employee by email")
		return nil, fmt.Errorf("failed to get employee by email: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, nil
	}

	var dbEmployee models.Employee
	if err := attributevalue.UnmarshalMap(result.Items[0], &dbEmployee); err != nil {
		return nil, fmt.Errorf("failed to unmarshal employee: %w", err)
	}

	return &dbEmployee, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal employee for DynamoDB")
		return fmt.Errorf("failed to marshal employee: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: e.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: e.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if _, ok := err.(*types.ConditionalCheckFailedException); ok {
			return fmt.Errorf("employee already exists")
		}
		r.logger.WithError(err).Error("Failed to create employee in DynamoDB")
		return fmt.Errorf("failed to create employee: %w", err)
	}

	return nil
}

// SetPermanentPassword stores the chosen password hash and flips the flag the
// session layer keys bootstrap promotion on.
func (r *EmployeeRepository) SetPermanentPassword(ctx context.Context, id, passwordHash string) error {
	e := &models.Employee{ID: id}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: e.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: e.GetSK()},
		},
		UpdateExpression: aws.String("SET password_hash = :password_hash, permanent_password_set = :set, updated_at = :updated_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":password_hash": &types.AttributeValueMemberS{Value: passwordHash},
			":set":           &types.AttributeValueMemberBOOL{Value: true},
			":updated_at":    &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to set employee permanent password in DynamoDB")
		return fmt.Errorf("failed to set permanent password: %w", err)
	}

	return nil
}

// IncrementTokenCount atomically bumps the invalidation counter for an
// employee, revoking every refresh token issued before the bump.
func (r *EmployeeRepository) IncrementTokenCount(ctx context.Context, id string) error {
	e := &models.Employee{ID: id}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: e.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: e.GetSK()},
		},
		UpdateExpression: aws.String("ADD token_count :inc"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to increment employee token count in DynamoDB")
		return fmt.Errorf("failed to increment token count: %w", err)
	}

	return nil
}
