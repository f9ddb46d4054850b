// Package relay announces engine events on Redis pub/sub channels for the
// external real-time layer (host UI, live-chat relay). Delivery of real-time
// chat itself is out of scope; this is a one-way announcement bridge.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "webinar:"
	publishTimeout = 5 * time.Second

	// EventSessionCreated fires when the scheduler materializes a session.
	EventSessionCreated = "session.created"
	// EventNotificationSent fires when the worker delivers a notification.
	EventNotificationSent = "notification.sent"
)

type payload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// Publisher publishes engine events over Redis pub/sub.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPublisher creates a relay publisher.
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, logger: logger}
}

func (p *Publisher) publish(webinarID uuid.UUID, event string, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		p.logger.Warn("relay marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg, err := json.Marshal(payload{Event: event, Data: body, At: time.Now().Unix()})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, channelPrefix+webinarID.String(), msg).Err(); err != nil {
		p.logger.Warn("relay publish failed", zap.String("event", event), zap.Error(err))
	}
}

// PublishSessionCreated announces a newly materialized session.
func (p *Publisher) PublishSessionCreated(webinarID uuid.UUID, scheduledAt time.Time) {
	p.publish(webinarID, EventSessionCreated, map[string]interface{}{
		"webinar_id":   webinarID,
		"scheduled_at": scheduledAt,
	})
}

// PublishNotificationSent announces a delivered notification.
func (p *Publisher) PublishNotificationSent(webinarID, registrationID uuid.UUID, trigger string) {
	p.publish(webinarID, EventNotificationSent, map[string]interface{}{
		"webinar_id":      webinarID,
		"registration_id": registrationID,
		"trigger":         trigger,
	})
}
