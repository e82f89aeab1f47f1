package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"txreport/internal/core"
)

// SeedRequestMessage asks a worker to replace the dataset from its source.
type SeedRequestMessage struct {
	RequestID string    `json:"requestId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSeedRequestMessage(reason string) *SeedRequestMessage {
	return &SeedRequestMessage{
		RequestID: uuid.NewString(),
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *SeedRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SeedRequestMessageFromJSON(data []byte) (*SeedRequestMessage, error) {
	var msg SeedRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DatasetSeededMessage announces that the dataset was replaced.
type DatasetSeededMessage struct {
	RunID      string    `json:"runId"`
	Source     string    `json:"source"`
	Count      int       `json:"count"`
	SeededAt   time.Time `json:"seededAt"`
	DurationMS int64     `json:"durationMs"`
}

func NewDatasetSeededMessage(r core.SeedResult) *DatasetSeededMessage {
	return &DatasetSeededMessage{
		RunID:      r.RunID,
		Source:     r.Source,
		Count:      r.Count,
		SeededAt:   r.SeededAt,
		DurationMS: r.Duration.Milliseconds(),
	}
}

func (m *DatasetSeededMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetSeededMessageFromJSON(data []byte) (*DatasetSeededMessage, error) {
	var msg DatasetSeededMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
