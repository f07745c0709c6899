package models

import (
	"encoding/json"
	"time"
)

// Tables carried on the change feed.
const (
	TableOrders       = "orders"
	TableTransactions = "transactions"
	TableWallets      = "wallets"
	TableSessions     = "sessions"
)

// EventKind tags a change event variant.
type EventKind string

const (
	EventInserted EventKind = "inserted"
	EventUpdated  EventKind = "updated"
)

// ChangeEvent is one insert/update notification from the change feed. New
// and Old carry the raw row JSON; Old is only set for updates and only when
// the transport supplied the previous image.
type ChangeEvent struct {
	EventID   string          `json:"event_id"`
	Kind      EventKind       `json:"kind"`
	Table     string          `json:"table"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderRow decodes the new row image as an order.
func (e ChangeEvent) OrderRow() (OrderRow, error) {
	var row OrderRow
	err := json.Unmarshal(e.New, &row)
	return row, err
}

// TransactionRow decodes the new row image as a ledger entry.
func (e ChangeEvent) TransactionRow() (TransactionRow, error) {
	var row TransactionRow
	err := json.Unmarshal(e.New, &row)
	return row, err
}

// WalletRow decodes the new row image as a wallet.
func (e ChangeEvent) WalletRow() (WalletRow, error) {
	var row WalletRow
	err := json.Unmarshal(e.New, &row)
	return row, err
}

// SessionRow decodes the new row image as a login session.
func (e ChangeEvent) SessionRow() (SessionRow, error) {
	var row SessionRow
	err := json.Unmarshal(e.New, &row)
	return row, err
}
