package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event raised by the task lifecycle engine.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	TaskID        string                 `json:"task_id"`
	GroupID       string                 `json:"group_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, taskID, groupID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		TaskID:        taskID,
		GroupID:       groupID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, taskID, groupID string, payload map[string]interface{}, correlationID string) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		TaskID:        taskID,
		GroupID:       groupID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// GetPayloadTime retrieves a time value from the payload
func (e *Event) GetPayloadTime(key string) time.Time {
	if val, ok := e.Payload[key]; ok {
		if ts, ok := val.(time.Time); ok {
			return ts
		}
	}
	return time.Time{}
}
