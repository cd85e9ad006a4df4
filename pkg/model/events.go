package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event wrapper on the NATS bus. Payload
// carries the event-specific body; headers duplicate the routing fields
// so consumers can filter without decoding.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// QuoteStatusChangedEvent is the payload published to NATS whenever a
// quote commits a state transition. Consumers (notification delivery,
// analytics) are downstream; publish failures never block the transition.
type QuoteStatusChangedEvent struct {
	QuoteID         string      `json:"quote_id"`
	SwapperName     SwapperName `json:"swapper_name"`
	SwapperType     SwapperType `json:"swapper_type"`
	OldStatus       QuoteStatus `json:"old_status"`
	NewStatus       QuoteStatus `json:"new_status"`
	DepositTxHash   string      `json:"deposit_tx_hash,omitempty"`
	ExecutionTxHash string      `json:"execution_tx_hash,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}
