package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ReminderMarkers records which (appointment, offset) pairs have already been
// notified, so re-running a tick at the matching minute cannot double-send.
type ReminderMarkers interface {
	AlreadySent(ctx context.Context, appointmentID, offset string) (bool, error)
	MarkSent(ctx context.Context, appointmentID, offset string, ttl time.Duration) error
}

// RedisReminderMarkers keeps sent-markers in Redis with a TTL slightly longer
// than the offset they guard, after which the key is useless anyway.
type RedisReminderMarkers struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisReminderMarkers(client *redis.Client, logger *logrus.Logger) *RedisReminderMarkers {
	return &RedisReminderMarkers{client: client, logger: logger}
}

func markerKey(appointmentID, offset string) string {
	return fmt.Sprintf("reminded:%s:%s", offset, appointmentID)
}

func (s *RedisReminderMarkers) AlreadySent(ctx context.Context, appointmentID, offset string) (bool, error) {
	exists, err := s.client.Exists(ctx, markerKey(appointmentID, offset)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder marker: %w", err)
	}
	return exists > 0, nil
}

func (s *RedisReminderMarkers) MarkSent(ctx context.Context, appointmentID, offset string, ttl time.Duration) error {
	if err := s.client.Set(ctx, markerKey(appointmentID, offset), "1", ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store reminder marker")
		return fmt.Errorf("failed to store reminder marker: %w", err)
	}
	return nil
}
