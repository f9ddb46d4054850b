// Package worker drains the Redis delivery queue and performs the actual
// notification sends, keeping slow providers out of the HTTP drain path.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/relay"
	"github.com/evergreenlive/backend/pkg/queue"
)

// EmailSender delivers one notification email.
type EmailSender interface {
	Send(ctx context.Context, p queue.DeliveryPayload) error
}

// DeliveryProcessor processes notification delivery jobs from the queue.
type DeliveryProcessor struct {
	queue  *queue.Queue
	sender EmailSender
	relay  *relay.Publisher
	logger *zap.Logger
}

// NewDeliveryProcessor creates a delivery processor. rel may be nil.
func NewDeliveryProcessor(q *queue.Queue, sender EmailSender, rel *relay.Publisher, logger *zap.Logger) *DeliveryProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryProcessor{queue: q, sender: sender, relay: rel, logger: logger}
}

// Process executes one delivery job.
func (p *DeliveryProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload queue.DeliveryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.sender.Send(ctx, payload); err != nil {
		return fmt.Errorf("send %s to %s: %w", payload.Trigger, payload.RecipientEmail, err)
	}
	if p.relay != nil {
		p.relay.PublishNotificationSent(payload.WebinarID, payload.RegistrationID, payload.Trigger)
	}
	p.logger.Info("notification delivered",
		zap.String("trigger", payload.Trigger),
		zap.String("recipient", payload.RecipientEmail),
		zap.String("job_id", payload.JobID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *DeliveryProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("delivery worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("delivery failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
