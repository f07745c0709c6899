package engine

import (
	"context"
	"sync"
	"time"

	"live-sync/config"
	"live-sync/internal/feed"
	"live-sync/internal/mapper"
	"live-sync/internal/models"
	"live-sync/internal/notify"
	"live-sync/internal/util"

	"go.uber.org/zap"
)

// Manager owns the mounted scopes. Mounting runs the snapshot load, seeds
// the tracker, applies the fallback policy, opens push channels and starts
// the scope's event loop. Tearing down a scope closes its channels and
// discards its tracker before any scope for the same view mounts again.
type Manager struct {
	cfg      config.BusinessConfig
	snapshot SnapshotSource
	open     StreamOpener
	sink     notify.Sink
	now      func() time.Time

	mu     sync.Mutex
	scopes map[Key]*Scope
	logger *zap.Logger
}

// NewManager creates a manager. sink may be nil; every scope always keeps
// its own ring buffer for the presentation layer.
func NewManager(cfg config.BusinessConfig, snapshot SnapshotSource, open StreamOpener, sink notify.Sink) *Manager {
	return &Manager{
		cfg:      cfg,
		snapshot: snapshot,
		open:     open,
		sink:     sink,
		now:      time.Now,
		scopes:   make(map[Key]*Scope),
		logger:   util.NamedLogger("engine"),
	}
}

// Mount returns the scope for the key, creating it on first use. The key is
// reserved in the scope map before any channel opens, so concurrent mounts
// for the same key converge on one scope and one set of subscriptions. A
// second mount would otherwise tear down the first one's channels, since
// subscribing a scope key closes the previous channel held for it.
func (m *Manager) Mount(ctx context.Context, kind ViewKind, identity string) *Scope {
	key := Key{Kind: kind, Identity: identity}

	m.mu.Lock()
	if s, ok := m.scopes[key]; ok {
		m.mu.Unlock()
		return s
	}
	s := newScope(key, m.cfg, m.sink, m.now)
	m.scopes[key] = s
	m.mu.Unlock()

	m.loadSnapshot(ctx, s)
	for _, scopeKey := range channelKeys(key) {
		s.attach(m.open(ctx, scopeKey))
	}
	s.start()

	util.ActiveScopes.Inc()
	m.logger.Info("scope mounted",
		zap.String("kind", string(kind)), zap.String("identity", identity))
	return s
}

// Unmount tears down the scope for the key, if mounted.
func (m *Manager) Unmount(kind ViewKind, identity string) {
	key := Key{Kind: kind, Identity: identity}

	m.mu.Lock()
	s, ok := m.scopes[key]
	if ok {
		delete(m.scopes, key)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	util.ActiveScopes.Dec()
	m.logger.Info("scope unmounted",
		zap.String("kind", string(kind)), zap.String("identity", identity))
}

// Remount handles an identity change for a view: the old identity's scope
// is fully torn down (channels, tracker, timers) before the new identity's
// scope is built, so no "already seen" state leaks across identities.
func (m *Manager) Remount(ctx context.Context, kind ViewKind, oldIdentity, newIdentity string) *Scope {
	m.Unmount(kind, oldIdentity)
	return m.Mount(ctx, kind, newIdentity)
}

// Shutdown unmounts everything.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	scopes := make([]*Scope, 0, len(m.scopes))
	for key, s := range m.scopes {
		scopes = append(scopes, s)
		delete(m.scopes, key)
	}
	m.mu.Unlock()

	for _, s := range scopes {
		s.Close()
		util.ActiveScopes.Dec()
	}
}

// channelKeys lists the push channels a scope listens on.
func channelKeys(key Key) []string {
	switch key.Kind {
	case ViewCustomer:
		return []string{feed.OrdersByCustomer(key.Identity)}
	case ViewRider:
		return []string{feed.OrdersByRider(key.Identity)}
	case ViewWallet:
		return []string{
			feed.TransactionsByUser(key.Identity),
			feed.WalletByUser(key.Identity),
		}
	case ViewSecurity:
		return []string{feed.SessionsByUser(key.Identity)}
	default:
		return nil
	}
}

// loadSnapshot fills a scope's initial state and seeds its tracker. Runs
// before the event loop starts, so no locking discipline is needed beyond
// the scope mutex taken for the API readers.
func (m *Manager) loadSnapshot(ctx context.Context, s *Scope) {
	start := time.Now()
	defer func() {
		util.SnapshotLoadLatency.Observe(time.Since(start).Seconds())
	}()
	util.SnapshotLoadsTotal.WithLabelValues(string(s.key.Kind)).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	empty := true

	switch s.key.Kind {
	case ViewCustomer, ViewRider:
		rows := m.snapshot.Orders(ctx, s.key)
		for _, row := range rows {
			s.tracker.Seed("order:"+row.ID, row.Status)
			s.st.orders[row.ID] = mapper.OrderView(row, now)
		}
		empty = len(rows) == 0
	case ViewWallet:
		txs := m.snapshot.Transactions(ctx, s.key.Identity)
		for _, row := range txs {
			s.tracker.Seed("tx:"+row.ID, row.Status)
			s.st.transactions[row.ID] = mapper.TransactionView(row)
		}
		if wallet := m.snapshot.Wallet(ctx, s.key.Identity); wallet != nil {
			w := mapper.WalletView(*wallet)
			s.st.wallet = &w
			empty = false
		}
		empty = empty && len(txs) == 0
	case ViewSecurity:
		profile, sessions := m.snapshot.Security(ctx, s.key.Identity)
		s.st.security = profile
		for _, row := range sessions {
			s.st.sessions[row.ID] = row
		}
		s.st.sessionEnd = m.snapshot.SessionExpiry(ctx, s.key.Identity)
		empty = profile == nil && len(sessions) == 0
	}

	if empty {
		m.applyFallback(s, now)
	}
	s.recomputeOrderAggregates()
	s.recomputeLedger()
}

// applyFallback installs the bundled demo dataset so the view is never
// blank. Fallback rows never seed the tracker: they are not store rows and
// must not suppress notifications for real data arriving later.
func (m *Manager) applyFallback(s *Scope, now time.Time) {
	s.st.source = SourceFallback
	util.FallbackActivationsTotal.Inc()

	switch s.key.Kind {
	case ViewCustomer, ViewRider:
		for _, row := range demoOrders(s.key, now) {
			s.st.orders[row.ID] = mapper.OrderView(row, now)
		}
	case ViewWallet:
		for _, row := range demoTransactions(s.key.Identity, now) {
			s.st.transactions[row.ID] = mapper.TransactionView(row)
		}
		w := mapper.WalletView(demoWallet(s.key.Identity, now))
		s.st.wallet = &w
	case ViewSecurity:
		profile, sessions := demoSecurity(s.key.Identity, now)
		s.st.security = &profile
		for _, row := range sessions {
			s.st.sessions[row.ID] = row
		}
	}
}

// NoopSnapshot is a SnapshotSource with no data; every scope mounted over
// it starts in fallback mode.
type NoopSnapshot struct{}

func (NoopSnapshot) Orders(context.Context, Key) []models.OrderRow        { return nil }
func (NoopSnapshot) Transactions(context.Context, string) []models.TransactionRow {
	return nil
}
func (NoopSnapshot) Wallet(context.Context, string) *models.WalletRow { return nil }
func (NoopSnapshot) Security(context.Context, string) (*models.SecurityRow, []models.SessionRow) {
	return nil, nil
}
func (NoopSnapshot) SessionExpiry(context.Context, string) *time.Time { return nil }
