package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"babagram/internal/model"
)

// Stream names
const (
	StreamNotifications = "stream:notifications"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotifications = "notification_workers"
)

// NotificationMessage is the stream payload for one notification. It carries
// the event plus the time it was enqueued.
type NotificationMessage struct {
	model.NotificationEvent
	Timestamp int64 `json:"timestamp"`
}

// NewNotificationMessage stamps an event for publishing.
func NewNotificationMessage(e model.NotificationEvent) NotificationMessage {
	return NotificationMessage{NotificationEvent: e, Timestamp: time.Now().Unix()}
}

// ToMap converts the message to field-value pairs for XADD. The payload is
// JSON in a "data" field; "kind" is duplicated for XRANGE inspection.
func (m NotificationMessage) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"kind": m.Kind,
		"data": string(data),
	}, nil
}

// ParseNotificationMessage parses stream message values.
func ParseNotificationMessage(values map[string]interface{}) (NotificationMessage, error) {
	data, ok := values["data"].(string)
	if !ok {
		return NotificationMessage{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var m NotificationMessage
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return NotificationMessage{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if m.RecipientID == "" || m.Kind == "" {
		return NotificationMessage{}, fmt.Errorf("event without recipient or kind")
	}
	return m, nil
}
