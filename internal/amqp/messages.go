package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names a ledger mutation.
type EventKind string

const (
	AccountCreated      EventKind = "account.created"
	AccountUpdated      EventKind = "account.updated"
	AccountDeleted      EventKind = "account.deleted"
	BalanceCorrected    EventKind = "account.balance_corrected"
	TransactionRecorded EventKind = "transaction.recorded"
	TransactionReversed EventKind = "transaction.reversed"
	TransactionReplaced EventKind = "transaction.replaced"
)

// LedgerEvent is a lightweight notification that the ledger changed. It
// carries identifiers only; consumers reload the snapshot they need.
type LedgerEvent struct {
	Kind       EventKind `json:"kind"`
	EntityID   string    `json:"entity_id"`
	ReplacedID string    `json:"replaced_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(kind EventKind, entityID string) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event and checks it names a kind and entity.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.EntityID == "" {
		return nil, fmt.Errorf("incomplete ledger event: kind=%q entity_id=%q", msg.Kind, msg.EntityID)
	}
	return &msg, nil
}
