// Package events defines the formation lifecycle events published on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the Kafka topic carrying formation events.
const Topic = "formation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InstanceCreatedEvent  EventType = "instance.created"
	StepSubmittedEvent    EventType = "step.submitted"
	StepCompletedEvent    EventType = "step.completed"
	DocumentUploadedEvent EventType = "document.uploaded"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	InstanceID string         `json:"instance_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, instanceID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		InstanceID: instanceID,
		Metadata:   make(map[string]any),
	}
}

type InstanceCreated struct {
	BaseEvent

	WorkflowType string `json:"workflow_type"`
	FreezoneCode string `json:"freezone_code,omitempty"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

// StepSubmitted is published after a step submission passed validation and was stored.
type StepSubmitted struct {
	BaseEvent

	StepNumber int            `json:"step_number"`
	StepType   string         `json:"step_type"`
	Data       map[string]any `json:"data,omitempty"`
}

func (e StepSubmitted) GetType() EventType {
	return StepSubmittedEvent
}

type StepCompleted struct {
	BaseEvent

	StepNumber int `json:"step_number"`
	NextStep   int `json:"next_step,omitempty"` // 0 when the workflow is finished
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

// DocumentUploaded is published for every stored document. OCRRequested marks uploads
// that the extraction service should pick up.
type DocumentUploaded struct {
	BaseEvent

	StepNumber   int     `json:"step_number"`
	DocumentID   string  `json:"document_id"`
	DocumentType string  `json:"document_type"`
	MimeType     string  `json:"mime_type,omitempty"`
	SizeMB       float64 `json:"size_mb"`
	OCRRequested bool    `json:"ocr_requested"`
}

func (e DocumentUploaded) GetType() EventType {
	return DocumentUploadedEvent
}
