package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"tradeviz/internal/core"
)

// MessageVersion is bumped on incompatible payload changes.
const MessageVersion = 1

// ChartRenderedMessage announces a rendered chart to the history worker.
type ChartRenderedMessage struct {
	Version   int             `json:"version"`
	Event     core.ChartEvent `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChartRenderedMessage wraps ev in a versioned message
func NewChartRenderedMessage(ev core.ChartEvent) *ChartRenderedMessage {
	return &ChartRenderedMessage{
		Version:   MessageVersion,
		Event:     ev,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChartRenderedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChartRenderedMessageFromJSON decodes and validates a message
func ChartRenderedMessageFromJSON(data []byte) (*ChartRenderedMessage, error) {
	var msg ChartRenderedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != MessageVersion {
		return nil, errors.New("unsupported message version")
	}
	if msg.Event.ChartID == "" {
		return nil, errors.New("message without chart id")
	}
	return &msg, nil
}
