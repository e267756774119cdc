package amqp

import (
	"encoding/json"
	"time"

	"budget/internal/core"
)

// BillEventMessage notifies workers that a bill changed. The full bill rides
// along so consumers do not need a database round trip to classify it.
type BillEventMessage struct {
	Kind      string    `json:"kind"`
	Bill      core.Bill `json:"bill"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillEventMessage(kind string, bill core.Bill) *BillEventMessage {
	return &BillEventMessage{
		Kind:      kind,
		Bill:      bill,
		Timestamp: time.Now().UTC(),
	}
}

func (m *BillEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillEventMessageFromJSON(data []byte) (*BillEventMessage, error) {
	var msg BillEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
