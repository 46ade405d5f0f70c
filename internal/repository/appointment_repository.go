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

type AppointmentRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewAppointmentRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	a := &models.Appointment{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: a.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: a.GetSK()},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get appointment from DynamoDB")
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if result.Item == nil {
		return nil, nil // Appointment not found
	}

	var dbAppointment models.Appointment
	if err := attributevalue.UnmarshalMap(result.Item, &dbAppointment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal appointment: %w", err)
	}

	return &dbAppointment, nil
}

// ListAll returns every appointment. The reminder scheduler and the
// confirmation receiver both work off the full set, the same way the booking
// data is small enough to scan each tick.
func (r *AppointmentRepository) ListAll(ctx context.Context) ([]models.Appointment, error) {
	var appointments []models.Appointment

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :pk_prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "APPOINTMENT#"},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan appointments from DynamoDB")
			return nil, fmt.Errorf("failed to list appointments: %w", err)
		}

		var batch []models.Appointment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal appointments: %w", err)
		}
		appointments = append(appointments, batch...)
	}

	return appointments, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal appointment for DynamoDB")
		return fmt.Errorf("failed to marshal appointment: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: a.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: a.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if _, ok := err.(*types.ConditionalCheckFailedException); ok {
			return fmt.Errorf("appointment already exists")
		}
		r.logger.WithError(err).Error("Failed to create appointment in DynamoDB")
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// SetConfirmed marks an appointment confirmed. Writing true to an already
// confirmed appointment is a no-op at the data level, which keeps the
// confirmation receiver idempotent.
func (r *AppointmentRepository) SetConfirmed(ctx context.Context, id string, confirmed bool) error {
	a := &models.Appointment{ID: id}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: a.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: a.GetSK()},
		},
		UpdateExpression: aws.String("SET confirmed = :confirmed, updated_at = :updated_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":confirmed":  &types.AttributeValueMemberBOOL{Value: confirmed},
			":updated_at": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to update appointment confirmation in DynamoDB")
		return fmt.Errorf("failed to confirm appointment: %w", err)
	}

	return nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	a := &models.Appointment{ID: id}

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: a.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: a.GetSK()},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	return nil
}
