// Package engine hosts per-identity reconciliation scopes. A scope merges
// an initial snapshot with the change feed, classifies transitions through
// its tracker, recomputes derived aggregates, and emits notifications. All
// of a scope's state is owned by its single event loop goroutine.
package engine

import (
	"context"
	"time"

	"live-sync/internal/models"
)

// ViewKind selects which view a scope reconciles for.
type ViewKind string

const (
	ViewCustomer ViewKind = "customer"
	ViewRider    ViewKind = "rider"
	ViewWallet   ViewKind = "wallet"
	ViewSecurity ViewKind = "security"
)

// Key identifies a mounted scope: one view for one identity.
type Key struct {
	Kind     ViewKind
	Identity string
}

// DataSource is the two-variant origin of a scope's dataset. It is resolved
// once per mount and swapped wholesale, never interleaved.
type DataSource string

const (
	SourceFallback DataSource = "fallback"
	SourceLive     DataSource = "live"
)

// Stream is a consumed push channel. *feed.Channel satisfies it; tests
// substitute their own.
type Stream interface {
	Events() <-chan models.ChangeEvent
	Live() bool
	Close()
}

// StreamOpener opens a push channel for a scope key.
type StreamOpener func(ctx context.Context, scopeKey string) Stream

// SnapshotSource supplies the initial rows for a scope. Implementations
// never fail: on any backend error they log and return empty data, leaving
// the fallback policy to decide.
type SnapshotSource interface {
	Orders(ctx context.Context, key Key) []models.OrderRow
	Transactions(ctx context.Context, identity string) []models.TransactionRow
	Wallet(ctx context.Context, identity string) *models.WalletRow
	Security(ctx context.Context, identity string) (*models.SecurityRow, []models.SessionRow)
	SessionExpiry(ctx context.Context, identity string) *time.Time
}
