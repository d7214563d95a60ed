package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
)

// SyncRequestMessage asks the sync daemon to drain one table's pending
// records. It is intentionally lightweight: the daemon reads the actual
// records from the local store, so a lost message costs nothing but latency
// until the next periodic drain.
type SyncRequestMessage struct {
	MessageID string    `json:"messageId"`
	Table     string    `json:"table"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordSyncedMessage announces that a record was confirmed by the remote
// store. Consumed by dashboards and audit workers; the sync core itself never
// reads these back.
type RecordSyncedMessage struct {
	MessageID string    `json:"messageId"`
	Table     string    `json:"table"`
	RecordID  string    `json:"recordId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncRequestMessage(table core.Table) *SyncRequestMessage {
	return &SyncRequestMessage{
		MessageID: uuid.NewString(),
		Table:     string(table),
		Timestamp: time.Now(),
	}
}

func NewRecordSyncedMessage(table core.Table, recordID string) *RecordSyncedMessage {
	return &RecordSyncedMessage{
		MessageID: uuid.NewString(),
		Table:     string(table),
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *RecordSyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncedMessageFromJSON(data []byte) (*RecordSyncedMessage, error) {
	var msg RecordSyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
