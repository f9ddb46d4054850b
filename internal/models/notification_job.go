package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationTrigger identifies which event a job notifies about.
type NotificationTrigger string

const (
	TriggerReminderBefore NotificationTrigger = "reminder_before"
	TriggerStarted        NotificationTrigger = "started"
	TriggerNoShow         NotificationTrigger = "no_show"
	TriggerCompleted      NotificationTrigger = "completed"
)

// Valid reports whether t is a known trigger.
func (t NotificationTrigger) Valid() bool {
	switch t {
	case TriggerReminderBefore, TriggerStarted, TriggerNoShow, TriggerCompleted:
		return true
	}
	return false
}

// NotificationStatus is the delivery state of a job.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationSkipped NotificationStatus = "skipped"
)

// NotificationJob is one trigger-based message owed to one registrant.
// Unique on (registration_id, trigger); status transitions are the only
// mutations after creation.
type NotificationJob struct {
	ID             uuid.UUID           `json:"id"`
	RegistrationID uuid.UUID           `json:"registration_id"`
	Trigger        NotificationTrigger `json:"trigger"`
	DueAt          time.Time           `json:"due_at"`
	Status         NotificationStatus  `json:"status"`
	Attempts       int                 `json:"attempts"`
	LastError      string              `json:"last_error,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}
