// Package events publishes appointment lifecycle notifications to downstream
// consumers. Delivery is best effort: callers log publish failures and move on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AppointmentCreated     = "APPOINTMENT_CREATED"
	AppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	AppointmentCancelled   = "APPOINTMENT_CANCELLED"
	AppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	AppointmentCompleted   = "APPOINTMENT_COMPLETED"
)

// Event is the wire form of a lifecycle notification.
type Event struct {
	Type          string         `json:"type"`
	AppointmentID uuid.UUID      `json:"appointment_id"`
	ProviderID    uuid.UUID      `json:"provider_id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	SlotID        *uuid.UUID     `json:"slot_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func (e Event) Key() string {
	return e.AppointmentID.String()
}

func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	return data, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
