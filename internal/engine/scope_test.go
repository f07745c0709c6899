package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"live-sync/config"
	"live-sync/internal/models"
	"live-sync/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBusiness = config.BusinessConfig{
	BaseDeliveryRate:   50,
	BonusThreshold:     15,
	BonusAmount:        200,
	CashbackRate:       0.05,
	ETATickInterval:    10 * time.Millisecond,
	SessionExpiryWarn:  5 * time.Minute,
	NotificationBuffer: 50,
}

// fakeStream is an in-test push channel.
type fakeStream struct {
	ch        chan models.ChangeEvent
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan models.ChangeEvent, 32)}
}

func (f *fakeStream) Events() <-chan models.ChangeEvent { return f.ch }
func (f *fakeStream) Live() bool                        { return true }
func (f *fakeStream) Close()                            { f.closeOnce.Do(func() { close(f.ch) }) }

// streamSet hands each mounted scope its fake streams and remembers them so
// tests can push events.
type streamSet struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
}

func newStreamSet() *streamSet {
	return &streamSet{streams: make(map[string]*fakeStream)}
}

func (s *streamSet) opener() StreamOpener {
	return func(_ context.Context, key string) Stream {
		s.mu.Lock()
		defer s.mu.Unlock()
		f := newFakeStream()
		s.streams[key] = f
		return f
	}
}

// subscribingOpener mimics the feed subscriber's contract: opening a scope
// key first closes any channel previously held for it.
func (s *streamSet) subscribingOpener(opens *atomic.Int32) StreamOpener {
	return func(_ context.Context, key string) Stream {
		s.mu.Lock()
		defer s.mu.Unlock()
		opens.Add(1)
		if prev, ok := s.streams[key]; ok {
			prev.Close()
		}
		f := newFakeStream()
		s.streams[key] = f
		return f
	}
}

func (s *streamSet) push(key string, ev models.ChangeEvent) {
	s.mu.Lock()
	f := s.streams[key]
	s.mu.Unlock()
	f.ch <- ev
}

// snapshotStub serves fixed rows.
type snapshotStub struct {
	orders       []models.OrderRow
	transactions []models.TransactionRow
	wallet       *models.WalletRow
	security     *models.SecurityRow
	sessions     []models.SessionRow
	expiry       *time.Time
}

func (s *snapshotStub) Orders(context.Context, Key) []models.OrderRow { return s.orders }
func (s *snapshotStub) Transactions(context.Context, string) []models.TransactionRow {
	return s.transactions
}
func (s *snapshotStub) Wallet(context.Context, string) *models.WalletRow { return s.wallet }
func (s *snapshotStub) Security(context.Context, string) (*models.SecurityRow, []models.SessionRow) {
	return s.security, s.sessions
}
func (s *snapshotStub) SessionExpiry(context.Context, string) *time.Time { return s.expiry }

func orderEvent(kind models.EventKind, row models.OrderRow) models.ChangeEvent {
	raw, _ := json.Marshal(row)
	return models.ChangeEvent{
		EventID:   "ev-" + row.ID + "-" + row.Status,
		Kind:      kind,
		Table:     models.TableOrders,
		New:       raw,
		Timestamp: time.Now(),
	}
}

func txEvent(kind models.EventKind, row models.TransactionRow) models.ChangeEvent {
	raw, _ := json.Marshal(row)
	return models.ChangeEvent{
		Kind:      kind,
		Table:     models.TableTransactions,
		New:       raw,
		Timestamp: time.Now(),
	}
}

func walletEvent(row models.WalletRow) models.ChangeEvent {
	raw, _ := json.Marshal(row)
	return models.ChangeEvent{
		Kind:      models.EventUpdated,
		Table:     models.TableWallets,
		New:       raw,
		Timestamp: time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func customerOrder(id, status string) models.OrderRow {
	return models.OrderRow{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Kind:        "food",
		Status:      status,
		CustomerID:  "cust-1",
		Address:     "Room 1, Nehru Hall",
		CreatedAt:   time.Now(),
	}
}

func TestDuplicateEventsAreIdempotent(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	key := "cdc:orders:customer:cust-1"

	streams.push(key, orderEvent(models.EventInserted, customerOrder("o1", "confirmed")))
	waitFor(t, func() bool { return len(scope.Render().Notifications) == 1 })

	// Redelivered twice: same status, zero additional notifications.
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "confirmed")))
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "confirmed")))
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "preparing")))

	waitFor(t, func() bool { return len(scope.Render().Notifications) == 2 })
	assert.Len(t, scope.Render().ActiveOrders, 1)
}

func TestExactlyOnceTransitions(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	key := "cdc:orders:customer:cust-1"

	for _, status := range []string{"pending", "confirmed", "preparing", "out_for_delivery", "delivered"} {
		kind := models.EventUpdated
		if status == "pending" {
			kind = models.EventInserted
		}
		streams.push(key, orderEvent(kind, customerOrder("o1", status)))
	}

	// The initial pending sighting is silent; each of the four edges
	// fires exactly one notification.
	waitFor(t, func() bool { return len(scope.Render().Notifications) == 4 })

	state := scope.Render()
	assert.Len(t, state.CompletedOrders, 1)
	assert.Empty(t, state.ActiveOrders)
	assert.Empty(t, state.DiscardedOrders)
}

func TestSnapshotSeedSuppressesRedelivery(t *testing.T) {
	streams := newStreamSet()
	snap := &snapshotStub{orders: []models.OrderRow{customerOrder("o1", "preparing")}}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	require.Len(t, scope.Render().ActiveOrders, 1)
	require.Empty(t, scope.Render().Notifications)

	// The store had already advanced before the stream connected; the
	// first stream event reasserts the snapshot status and must stay
	// silent.
	key := "cdc:orders:customer:cust-1"
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "preparing")))
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "ready")))

	waitFor(t, func() bool { return len(scope.Render().Notifications) == 1 })
}

func TestOrderMembershipIsExclusive(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	key := "cdc:orders:customer:cust-1"

	streams.push(key, orderEvent(models.EventInserted, customerOrder("o1", "pending")))
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "delivered")))
	// Redelivery of the terminal status must not duplicate membership.
	streams.push(key, orderEvent(models.EventUpdated, customerOrder("o1", "delivered")))

	waitFor(t, func() bool { return len(scope.Render().CompletedOrders) == 1 })
	state := scope.Render()
	assert.Empty(t, state.ActiveOrders)
	assert.Empty(t, state.DiscardedOrders)
	assert.Len(t, state.CompletedOrders, 1)
}

func TestIdentityIsolationOnRemount(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)
	defer m.Shutdown()

	first := m.Mount(context.Background(), ViewCustomer, "cust-1")
	streams.push("cdc:orders:customer:cust-1",
		orderEvent(models.EventInserted, customerOrder("o1", "confirmed")))
	waitFor(t, func() bool { return len(first.Render().Notifications) == 1 })

	// Identity change: the old scope's transition history must not leak.
	second := m.Remount(context.Background(), ViewCustomer, "cust-1", "cust-2")

	row := customerOrder("o1", "confirmed")
	row.CustomerID = "cust-2"
	streams.push("cdc:orders:customer:cust-2", orderEvent(models.EventInserted, row))

	// Same order id, same status, but a fresh identity: the first
	// notification must fire.
	waitFor(t, func() bool { return len(second.Render().Notifications) == 1 })
}

func TestFallbackReplacedWholesaleByLiveData(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, NoopSnapshot{}, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")

	state := scope.Render()
	assert.Equal(t, SourceFallback, state.Source)
	assert.NotEmpty(t, state.ActiveOrders)

	streams.push("cdc:orders:customer:cust-1",
		orderEvent(models.EventInserted, customerOrder("live-1", "pending")))

	waitFor(t, func() bool { return scope.Render().Source == SourceLive })
	state = scope.Render()

	// No fallback entity survives the swap.
	require.Len(t, state.ActiveOrders, 1)
	assert.Equal(t, "live-1", state.ActiveOrders[0].ID)
	assert.Empty(t, state.CompletedOrders)
}

func TestNonEmptySnapshotStartsLive(t *testing.T) {
	streams := newStreamSet()
	snap := &snapshotStub{orders: []models.OrderRow{customerOrder("o1", "pending")}}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	assert.Equal(t, SourceLive, scope.Render().Source)
}

func TestRiderAggregatesRecompute(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewRider, "rider-1")
	key := "cdc:orders:rider:rider-1"

	rider := "rider-1"
	push := func(id, status, address string) {
		row := models.OrderRow{
			ID: id, OrderNumber: "ORD-" + id, Status: status,
			CustomerID: "cust-9", RiderID: &rider, Address: address,
			CreatedAt: time.Now(),
		}
		streams.push(key, orderEvent(models.EventUpdated, row))
	}

	push("a", "out_for_delivery", "Room 1, Nehru Hall")
	push("b", "preparing", "Room 2, Nehru Hall")
	push("c", "preparing", "Room 5, Azad Hall")
	push("d", "delivered", "Room 7, Azad Hall")

	waitFor(t, func() bool {
		s := scope.Render()
		return s.Source == SourceLive &&
			s.Earnings != nil && s.Earnings.DeliveredCount == 1 && len(s.Batches) == 1
	})

	state := scope.Render()
	assert.Equal(t, int64(50), state.Earnings.Total)
	require.Len(t, state.Batches, 1)
	assert.Equal(t, "Nehru Hall Zone", state.Batches[0].ZoneLabel)
	require.Len(t, state.Batches[0].Orders, 2)
	assert.Equal(t, 1, state.Batches[0].Orders[0].Sequence)
	assert.Equal(t, 2, state.Batches[0].Orders[1].Sequence)
}

func TestWalletBalanceReplacedWholesale(t *testing.T) {
	streams := newStreamSet()
	snap := &snapshotStub{wallet: &models.WalletRow{UserID: "u1", Balance: 10000}}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewWallet, "u1")
	require.NotNil(t, scope.Render().Wallet)
	assert.Equal(t, int64(10000), scope.Render().Wallet.Balance)

	streams.push("cdc:wallets:user:u1", walletEvent(models.WalletRow{UserID: "u1", Balance: 7500}))
	waitFor(t, func() bool {
		w := scope.Render().Wallet
		return w != nil && w.Balance == 7500
	})

	// A duplicate of the same balance changes nothing.
	streams.push("cdc:wallets:user:u1", walletEvent(models.WalletRow{UserID: "u1", Balance: 7500}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(7500), scope.Render().Wallet.Balance)
}

func TestTransactionSettlementNotifiesOnce(t *testing.T) {
	streams := newStreamSet()
	snap := &snapshotStub{wallet: &models.WalletRow{UserID: "u1", Balance: 10000}}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewWallet, "u1")
	key := "cdc:transactions:user:u1"

	tx := models.TransactionRow{
		ID: "t1", UserID: "u1", Direction: "credit",
		Amount: 20000, Description: "Wallet top-up", Status: "pending",
		CreatedAt: time.Now(),
	}
	streams.push(key, txEvent(models.EventInserted, tx))

	tx.Status = "completed"
	streams.push(key, txEvent(models.EventUpdated, tx))
	// Redelivered settlement: no second notification.
	streams.push(key, txEvent(models.EventUpdated, tx))

	waitFor(t, func() bool {
		s := scope.Render()
		return s.Ledger != nil && s.Ledger.Credits == 20000
	})
	assert.Len(t, scope.Render().Notifications, 1)
	assert.Equal(t, int64(1000), scope.Render().Ledger.Cashback)
}

func TestETATickerDoesNotIncreaseETA(t *testing.T) {
	streams := newStreamSet()
	est := time.Now().Add(20 * time.Minute)
	row := customerOrder("o1", "out_for_delivery")
	row.EstimatedDelivery = &est
	snap := &snapshotStub{orders: []models.OrderRow{row}}

	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	state := scope.Render()
	require.Len(t, state.ActiveOrders, 1)
	require.NotNil(t, state.ActiveOrders[0].ETAMinutes)
	initial := *state.ActiveOrders[0].ETAMinutes
	assert.InDelta(t, 20, initial, 1)

	// Let the ticker fire a few times.
	time.Sleep(50 * time.Millisecond)

	state = scope.Render()
	require.NotNil(t, state.ActiveOrders[0].ETAMinutes)
	assert.LessOrEqual(t, *state.ActiveOrders[0].ETAMinutes, initial)
}

func TestSecurityExpiryWarningFiresOnce(t *testing.T) {
	streams := newStreamSet()
	expiry := time.Now().Add(3 * time.Minute)
	snap := &snapshotStub{
		security: &models.SecurityRow{UserID: "u1", TwoFactorEnabled: true},
		sessions: []models.SessionRow{
			{ID: "s1", UserID: "u1", Device: "Chrome", IsCurrent: true, LastActive: time.Now()},
		},
		expiry: &expiry,
	}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	scope := m.Mount(context.Background(), ViewSecurity, "u1")

	waitFor(t, func() bool { return len(scope.Render().Notifications) == 1 })

	// Further ticks stay silent.
	time.Sleep(50 * time.Millisecond)
	got := scope.Render().Notifications
	require.Len(t, got, 1)
	assert.Equal(t, notify.SeverityWarning, got[0].Severity)
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	m.Unmount(ViewCustomer, "cust-1")

	assert.NotPanics(t, func() {
		scope.Close()
		scope.Close()
	})
	// Unmounting an already-unmounted scope is a no-op.
	assert.NotPanics(t, func() { m.Unmount(ViewCustomer, "cust-1") })
	m.Shutdown()
}

func TestMountIsIdempotentPerKey(t *testing.T) {
	streams := newStreamSet()
	m := NewManager(testBusiness, &snapshotStub{}, streams.opener(), nil)
	defer m.Shutdown()

	a := m.Mount(context.Background(), ViewCustomer, "cust-1")
	b := m.Mount(context.Background(), ViewCustomer, "cust-1")
	assert.Same(t, a, b)
}

func TestConcurrentMountsConvergeOnOneChannel(t *testing.T) {
	streams := newStreamSet()
	var opens atomic.Int32
	m := NewManager(testBusiness, &snapshotStub{}, streams.subscribingOpener(&opens), nil)
	defer m.Shutdown()

	const mounts = 8
	scopes := make([]*Scope, mounts)
	var wg sync.WaitGroup
	for i := 0; i < mounts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scopes[i] = m.Mount(context.Background(), ViewCustomer, "cust-1")
		}(i)
	}
	wg.Wait()

	for _, s := range scopes[1:] {
		assert.Same(t, scopes[0], s)
	}
	// Exactly one subscription: a second one would tear down the first
	// mount's channel and leave the scope deaf.
	assert.Equal(t, int32(1), opens.Load())

	streams.push("cdc:orders:customer:cust-1",
		orderEvent(models.EventInserted, customerOrder("o1", "confirmed")))
	waitFor(t, func() bool { return len(scopes[0].Render().Notifications) == 1 })
}

func TestTickerIdlesWithoutPendingWork(t *testing.T) {
	streams := newStreamSet()
	snap := &snapshotStub{wallet: &models.WalletRow{UserID: "u1", Balance: 5000}}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	var clockReads atomic.Int64
	m.now = func() time.Time {
		clockReads.Add(1)
		return time.Now()
	}

	m.Mount(context.Background(), ViewWallet, "u1")
	base := clockReads.Load()

	// Several tick intervals pass; with nothing to refresh, the loop never
	// consults the clock again.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, base, clockReads.Load())
}

func TestTickerResumesWhenEstimateArrives(t *testing.T) {
	streams := newStreamSet()
	snap := &snapshotStub{orders: []models.OrderRow{customerOrder("o1", "preparing")}}
	m := NewManager(testBusiness, snap, streams.opener(), nil)
	defer m.Shutdown()

	var clockReads atomic.Int64
	m.now = func() time.Time {
		clockReads.Add(1)
		return time.Now()
	}

	scope := m.Mount(context.Background(), ViewCustomer, "cust-1")
	base := clockReads.Load()
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, base, clockReads.Load())

	est := time.Now().Add(15 * time.Minute)
	row := customerOrder("o1", "ready")
	row.EstimatedDelivery = &est
	streams.push("cdc:orders:customer:cust-1", orderEvent(models.EventUpdated, row))

	// Applying the event reads the clock once; any growth beyond that is
	// the refresh ticker running again.
	waitFor(t, func() bool { return clockReads.Load() > base+1 })
	require.Len(t, scope.Render().ActiveOrders, 1)
	assert.NotNil(t, scope.Render().ActiveOrders[0].ETAMinutes)
}
