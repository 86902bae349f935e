package shared

import "time"

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the internship lifecycle or the issuance flow.
const (
	// Lifecycle events
	EventInternCompleted   EventType = "intern.completed"
	EventInternReactivated EventType = "intern.reactivated"
	EventInternExtended    EventType = "intern.extended"

	// Issuance events
	EventCertificateIssued         EventType = "certificate.issued"
	EventCertificateDeliveryFailed EventType = "certificate.delivery_failed"

	// System events
	EventSweepCompleted EventType = "system.sweep_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the record that produced this event.
	AggregateID() string

	// Payload returns the event data for logging and serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

func newBaseEvent(t EventType, aggregateID string) BaseEvent {
	return BaseEvent{Type: t, Timestamp: time.Now().UTC(), AggregateId: aggregateID}
}

// InternCompletedEvent is published when the sweeper moves an intern from
// Active to Completed.
type InternCompletedEvent struct {
	BaseEvent
	InternID string
	UniqueID string
	EndDate  time.Time
}

// NewInternCompletedEvent creates an InternCompletedEvent.
func NewInternCompletedEvent(internID, uniqueID string, endDate time.Time) *InternCompletedEvent {
	return &InternCompletedEvent{
		BaseEvent: newBaseEvent(EventInternCompleted, internID),
		InternID:  internID,
		UniqueID:  uniqueID,
		EndDate:   endDate,
	}
}

func (e *InternCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"intern_id": e.InternID,
		"unique_id": e.UniqueID,
		"end_date":  e.EndDate.Format(time.RFC3339),
	}
}

// InternReactivatedEvent is published when a late extension pushes a
// completed intern back to Active.
type InternReactivatedEvent struct {
	BaseEvent
	InternID string
	UniqueID string
	EndDate  time.Time
}

// NewInternReactivatedEvent creates an InternReactivatedEvent.
func NewInternReactivatedEvent(internID, uniqueID string, endDate time.Time) *InternReactivatedEvent {
	return &InternReactivatedEvent{
		BaseEvent: newBaseEvent(EventInternReactivated, internID),
		InternID:  internID,
		UniqueID:  uniqueID,
		EndDate:   endDate,
	}
}

func (e *InternReactivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"intern_id": e.InternID,
		"unique_id": e.UniqueID,
		"end_date":  e.EndDate.Format(time.RFC3339),
	}
}

// InternExtendedEvent is published when an extension is applied.
type InternExtendedEvent struct {
	BaseEvent
	InternID  string
	AddedDays int
	TotalDays int
}

// NewInternExtendedEvent creates an InternExtendedEvent.
func NewInternExtendedEvent(internID string, addedDays, totalDays int) *InternExtendedEvent {
	return &InternExtendedEvent{
		BaseEvent: newBaseEvent(EventInternExtended, internID),
		InternID:  internID,
		AddedDays: addedDays,
		TotalDays: totalDays,
	}
}

func (e *InternExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"intern_id":  e.InternID,
		"added_days": e.AddedDays,
		"total_days": e.TotalDays,
	}
}

// CertificateIssuedEvent is published when an issuance attempt completes
// with a persisted certificate number.
type CertificateIssuedEvent struct {
	BaseEvent
	FeedbackID        string
	UniqueID          string
	CertificateNumber string
}

// NewCertificateIssuedEvent creates a CertificateIssuedEvent.
func NewCertificateIssuedEvent(feedbackID, uniqueID, certificateNumber string) *CertificateIssuedEvent {
	return &CertificateIssuedEvent{
		BaseEvent:         newBaseEvent(EventCertificateIssued, feedbackID),
		FeedbackID:        feedbackID,
		UniqueID:          uniqueID,
		CertificateNumber: certificateNumber,
	}
}

func (e *CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"feedback_id":        e.FeedbackID,
		"unique_id":          e.UniqueID,
		"certificate_number": e.CertificateNumber,
	}
}

// CertificateDeliveryFailedEvent is published when the status flip persisted
// but render or delivery failed. The record is left in the detectable
// "issued without a number" state for operator reconciliation.
type CertificateDeliveryFailedEvent struct {
	BaseEvent
	FeedbackID string
	UniqueID   string
	Email      string
	Reason     string
}

// NewCertificateDeliveryFailedEvent creates a CertificateDeliveryFailedEvent.
func NewCertificateDeliveryFailedEvent(feedbackID, uniqueID, email, reason string) *CertificateDeliveryFailedEvent {
	return &CertificateDeliveryFailedEvent{
		BaseEvent:  newBaseEvent(EventCertificateDeliveryFailed, feedbackID),
		FeedbackID: feedbackID,
		UniqueID:   uniqueID,
		Email:      email,
		Reason:     reason,
	}
}

func (e *CertificateDeliveryFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"feedback_id": e.FeedbackID,
		"unique_id":   e.UniqueID,
		"email":       e.Email,
		"reason":      e.Reason,
	}
}

// SweepCompletedEvent is published after each lifecycle sweep run.
type SweepCompletedEvent struct {
	BaseEvent
	Scanned      int
	Transitioned int
	Errors       int
}

// NewSweepCompletedEvent creates a SweepCompletedEvent.
func NewSweepCompletedEvent(scanned, transitioned, errorCount int) *SweepCompletedEvent {
	return &SweepCompletedEvent{
		BaseEvent:    newBaseEvent(EventSweepCompleted, "lifecycle_sweep"),
		Scanned:      scanned,
		Transitioned: transitioned,
		Errors:       errorCount,
	}
}

func (e *SweepCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"scanned":      e.Scanned,
		"transitioned": e.Transitioned,
		"errors":       e.Errors,
	}
}

// EventPublisher publishes domain events to interested subscribers.
// Implemented by the in-process event bus in infrastructure/messaging.
type EventPublisher interface {
	Publish(event Event) error
}
