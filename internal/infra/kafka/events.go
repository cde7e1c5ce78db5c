package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/config"
	"github.com/mtsatou/mte-core/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(_ context.Context, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(value),
	}
	if userID != "" {
		msg.Key = sarama.StringEncoder(userID)
	}

	p.producer.Input() <- msg
	return nil
}

// PublishUserLoggedIn emits auth.user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"email":      logger.MaskEmail(event.Email),
		"logged_at":  event.LoggedAt,
		"expires_at": event.ExpiresAt,
	}
	return p.publish(ctx, "auth.user.logged_in", strconv.FormatInt(event.UserID, 10), event.LoggedAt, payload)
}

// PublishTokenRefreshed emits auth.token.refreshed events.
func (p *EventPublisher) PublishTokenRefreshed(ctx context.Context, event domain.TokenRefreshedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"refreshed_at": event.RefreshedAt,
		"expires_at":   event.ExpiresAt,
	}
	return p.publish(ctx, "auth.token.refreshed", strconv.FormatInt(event.UserID, 10), event.RefreshedAt, payload)
}

// PublishVerificationRequested emits auth.verification.requested events.
func (p *EventPublisher) PublishVerificationRequested(ctx context.Context, event domain.VerificationRequestedEvent) error {
	payload := map[string]any{
		"email":        logger.MaskEmail(event.Email),
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
	}
	return p.publish(ctx, "auth.verification.requested", "", event.RequestedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
