package notifications

import (
	"context"

	"github.com/evergreenlive/backend/pkg/queue"
)

// QueueSender hands due jobs to the Redis delivery queue; the worker binary
// performs the actual send so a slow provider never stalls the drain.
type QueueSender struct {
	queue *queue.Queue
}

// NewQueueSender creates a queue-backed sender.
func NewQueueSender(q *queue.Queue) *QueueSender {
	return &QueueSender{queue: q}
}

// Send enqueues the delivery payload.
func (s *QueueSender) Send(ctx context.Context, d *DueJob) error {
	return s.queue.EnqueueDelivery(ctx, queue.DeliveryPayload{
		JobID:           d.Job.ID,
		RegistrationID:  d.Registration.ID,
		Trigger:         string(d.Job.Trigger),
		RecipientEmail:  d.Registration.Email,
		RecipientName:   d.Registration.FullName,
		WebinarID:       d.Registration.WebinarID,
		WebinarTitle:    d.WebinarTitle,
		SessionStartsAt: d.Session.ScheduledAt,
	})
}
