package engine

import (
	"context"
	"time"

	"live-sync/internal/models"
	"live-sync/internal/redisclient"
	"live-sync/internal/store"
	"live-sync/internal/util"

	"go.uber.org/zap"
)

// Loader is the production SnapshotSource: Postgres reads with a Redis
// read-through cache for the wallet balance. Loads never fail upward: any
// backend error is logged and surfaces as "no data", so the fallback policy
// decides what the view shows.
type Loader struct {
	store  *store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewLoader creates a snapshot loader. cache may be nil.
func NewLoader(st *store.Store, cache *redisclient.Client) *Loader {
	return &Loader{
		store:  st,
		cache:  cache,
		logger: util.NamedLogger("snapshot"),
	}
}

func (l *Loader) fail(view string, err error) {
	util.SnapshotLoadFailuresTotal.WithLabelValues(view).Inc()
	l.logger.Warn("snapshot load failed, returning no data",
		zap.String("view", view), zap.Error(err))
}

// Orders loads the order rows for a customer or rider scope.
func (l *Loader) Orders(ctx context.Context, key Key) []models.OrderRow {
	ctx, span := util.StartSpan(ctx, "Loader.Orders")
	defer span.End()

	var (
		rows []models.OrderRow
		err  error
	)
	switch key.Kind {
	case ViewRider:
		rows, err = l.store.OrdersByRider(ctx, key.Identity)
	default:
		rows, err = l.store.OrdersByCustomer(ctx, key.Identity)
	}
	if err != nil {
		l.fail(string(key.Kind), err)
		return nil
	}
	return rows
}

// Transactions loads a user's ledger entries.
func (l *Loader) Transactions(ctx context.Context, identity string) []models.TransactionRow {
	ctx, span := util.StartSpan(ctx, "Loader.Transactions")
	defer span.End()

	rows, err := l.store.TransactionsByUser(ctx, identity)
	if err != nil {
		l.fail("wallet", err)
		return nil
	}
	return rows
}

// Wallet loads a user's wallet, preferring the cached balance.
func (l *Loader) Wallet(ctx context.Context, identity string) *models.WalletRow {
	ctx, span := util.StartSpan(ctx, "Loader.Wallet")
	defer span.End()

	if l.cache != nil {
		balance, ok, err := l.cache.CachedWalletBalance(ctx, identity)
		if err != nil {
			l.logger.Debug("wallet cache read failed", zap.Error(err))
		} else if ok {
			return &models.WalletRow{UserID: identity, Balance: balance, UpdatedAt: time.Now()}
		}
	}

	row, err := l.store.WalletByUser(ctx, identity)
	if err != nil {
		l.fail("wallet", err)
		return nil
	}
	if row != nil && l.cache != nil {
		if err := l.cache.CacheWalletBalance(ctx, identity, row.Balance); err != nil {
			l.logger.Debug("wallet cache write failed", zap.Error(err))
		}
	}
	return row
}

// Security loads a user's security profile and sessions.
func (l *Loader) Security(ctx context.Context, identity string) (*models.SecurityRow, []models.SessionRow) {
	ctx, span := util.StartSpan(ctx, "Loader.Security")
	defer span.End()

	profile, err := l.store.SecurityByUser(ctx, identity)
	if err != nil {
		l.fail("security", err)
		return nil, nil
	}
	sessions, err := l.store.SessionsByUser(ctx, identity)
	if err != nil {
		l.fail("security", err)
		return profile, nil
	}
	return profile, sessions
}

// SessionExpiry returns the current session's expiry, or nil.
func (l *Loader) SessionExpiry(ctx context.Context, identity string) *time.Time {
	expiry, err := l.store.SessionExpiry(ctx, identity)
	if err != nil {
		l.logger.Debug("session expiry lookup failed", zap.Error(err))
		return nil
	}
	return expiry
}
