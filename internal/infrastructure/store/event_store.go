package store

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event recorded in the outbox in the same transaction as
// the state change it describes.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
}

func newEvent(aggregateType string, aggregateID int64, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
	}, nil
}
