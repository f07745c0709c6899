package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"live-sync/config"
	"live-sync/internal/aggregate"
	"live-sync/internal/mapper"
	"live-sync/internal/models"
	"live-sync/internal/notify"
	"live-sync/internal/tracker"
	"live-sync/internal/util"

	"go.uber.org/zap"
)

// ViewState is the rendered, JSON-ready state of a scope.
type ViewState struct {
	Kind            ViewKind                `json:"kind"`
	Identity        string                  `json:"identity"`
	Source          DataSource              `json:"source"`
	Live            bool                    `json:"live"`
	ActiveOrders    []models.OrderView      `json:"active_orders,omitempty"`
	CompletedOrders []models.OrderView      `json:"completed_orders,omitempty"`
	DiscardedOrders []models.OrderView      `json:"discarded_orders,omitempty"`
	Batches         []models.BatchGroup     `json:"batches,omitempty"`
	Earnings        *models.EarningsSummary `json:"earnings,omitempty"`
	Transactions    []models.TransactionView `json:"transactions,omitempty"`
	Wallet          *models.WalletView      `json:"wallet,omitempty"`
	Ledger          *aggregate.LedgerTotals `json:"ledger,omitempty"`
	Security        *models.SecurityView    `json:"security,omitempty"`
	Notifications   []notify.Notification   `json:"notifications"`
}

// state is the scope's mutable reconciled state. Orders live in one map;
// the active/completed/discarded partition falls out of each order's status
// at render time, which keeps an order in exactly one set by construction.
type state struct {
	source       DataSource
	orders       map[string]models.OrderView
	transactions map[string]models.TransactionView
	wallet       *models.WalletView
	security     *models.SecurityRow
	sessions     map[string]models.SessionRow
	sessionEnd   *time.Time
	earnings     *models.EarningsSummary
	batches      []models.BatchGroup
	ledger       *aggregate.LedgerTotals
	expiryWarned bool
}

func newState() state {
	return state{
		source:       SourceLive,
		orders:       make(map[string]models.OrderView),
		transactions: make(map[string]models.TransactionView),
		sessions:     make(map[string]models.SessionRow),
	}
}

// Scope reconciles one view for one identity. Everything behind mu is
// written only by the run loop; readers take the read lock.
type Scope struct {
	key        Key
	cfg        config.BusinessConfig
	now        func() time.Time
	tracker    *tracker.Tracker
	dispatcher *notify.Dispatcher
	ring       *notify.RingSink
	streamsMu  sync.RWMutex
	streams    []Stream
	events     chan models.ChangeEvent
	done       chan struct{}
	closeOnce  sync.Once
	started    atomic.Bool
	loopDone   chan struct{}
	mu         sync.RWMutex
	st         state
	logger     *zap.Logger
}

func newScope(key Key, cfg config.BusinessConfig, sink notify.Sink, now func() time.Time) *Scope {
	ring := notify.NewRingSink(cfg.NotificationBuffer)
	var fan notify.Sink = ring
	if sink != nil {
		fan = notify.MultiSink{ring, sink}
	}
	return &Scope{
		key:        key,
		cfg:        cfg,
		now:        now,
		tracker:    tracker.New(),
		dispatcher: notify.NewDispatcher(fan),
		ring:       ring,
		events:     make(chan models.ChangeEvent, 64),
		done:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		st:         newState(),
		logger: util.NamedLogger("scope").With(
			zap.String("kind", string(key.Kind)),
			zap.String("identity", key.Identity)),
	}
}

// attach wires a stream into the scope's event loop. A stream handed to a
// scope that was already torn down is closed on the spot.
func (s *Scope) attach(st Stream) {
	s.streamsMu.Lock()
	select {
	case <-s.done:
		s.streamsMu.Unlock()
		st.Close()
		return
	default:
	}
	s.streams = append(s.streams, st)
	s.streamsMu.Unlock()
	src := st.Events()
	go func() {
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-src:
				if !ok {
					return
				}
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			}
		}
	}()
}

func (s *Scope) start() {
	s.started.Store(true)
	go s.run()
}

func (s *Scope) run() {
	defer close(s.loopDone)
	interval := s.cfg.ETATickInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The ticker only runs while some entity has pending time-based work:
	// a non-terminal order carrying an estimate, or an unexpired session
	// awaiting its warning.
	ticking := true
	retune := func() {
		switch needed := s.tickNeeded(); {
		case needed && !ticking:
			ticker.Reset(interval)
			ticking = true
		case !needed && ticking:
			ticker.Stop()
			ticking = false
		}
	}
	retune()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.apply(ev)
			retune()
		case <-ticker.C:
			s.tick()
			retune()
		}
	}
}

// tickNeeded reports whether the periodic refresh has anything to do.
func (s *Scope) tickNeeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key.Kind == ViewSecurity && s.st.sessionEnd != nil && !s.st.expiryWarned {
		return true
	}
	for _, o := range s.st.orders {
		if o.EstimatedDelivery != nil && !o.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// Live reports whether any of the scope's push channels is connected.
func (s *Scope) Live() bool {
	s.streamsMu.RLock()
	defer s.streamsMu.RUnlock()
	for _, st := range s.streams {
		if st.Live() {
			return true
		}
	}
	return false
}

// Close tears the scope down: streams closed, loop stopped, tracker
// discarded. Safe to call repeatedly; never panics.
func (s *Scope) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.streamsMu.Lock()
		streams := s.streams
		s.streamsMu.Unlock()
		for _, st := range streams {
			st.Close()
		}
		if s.started.Load() {
			<-s.loopDone
		}
		s.mu.Lock()
		s.tracker.Reset()
		s.mu.Unlock()
		s.logger.Info("scope closed")
	})
}

// apply processes one change event. All classification and recomputation
// for an event happens here, synchronously.
func (s *Scope) apply(ev models.ChangeEvent) {
	start := time.Now()
	defer func() {
		util.EventApplyLatency.Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Table {
	case models.TableOrders:
		s.applyOrder(ev)
	case models.TableTransactions:
		s.applyTransaction(ev)
	case models.TableWallets:
		s.applyWallet(ev)
	case models.TableSessions:
		s.applySession(ev)
	default:
		util.ChangeEventsDroppedTotal.WithLabelValues("unknown_table").Inc()
	}
}

// promoteLive swaps the scope from the fallback dataset to live data. The
// whole fallback set is dropped before the first live row is applied; the
// two are never mixed.
func (s *Scope) promoteLive() {
	if s.st.source != SourceFallback {
		return
	}
	sessionEnd := s.st.sessionEnd
	s.st = newState()
	s.st.sessionEnd = sessionEnd
	s.logger.Info("fallback dataset replaced by live data")
}

func (s *Scope) applyOrder(ev models.ChangeEvent) {
	row, err := ev.OrderRow()
	if err != nil || row.ID == "" {
		util.ChangeEventsDroppedTotal.WithLabelValues("bad_row").Inc()
		return
	}
	s.promoteLive()

	_, real := s.tracker.Observe("order:"+row.ID, row.Status)
	if !real {
		util.ChangeEventsNoopTotal.Inc()
		return
	}
	util.ChangeEventsAppliedTotal.WithLabelValues(ev.Table).Inc()

	view := mapper.OrderView(row, s.now())
	s.st.orders[row.ID] = view

	// The status table decides the message. A first observation of pending
	// has no entry and stays silent, so a fresh order placing plus its full
	// progression yields one notification per edge.
	s.dispatcher.OrderTransition(view, view.Status)

	s.recomputeOrderAggregates()
}

func (s *Scope) applyTransaction(ev models.ChangeEvent) {
	row, err := ev.TransactionRow()
	if err != nil || row.ID == "" {
		util.ChangeEventsDroppedTotal.WithLabelValues("bad_row").Inc()
		return
	}
	s.promoteLive()

	tr, real := s.tracker.Observe("tx:"+row.ID, row.Status)
	if !real {
		util.ChangeEventsNoopTotal.Inc()
		return
	}
	util.ChangeEventsAppliedTotal.WithLabelValues(ev.Table).Inc()

	view := mapper.TransactionView(row)
	s.st.transactions[row.ID] = view

	// A settlement notification fires only on the pending->terminal edge,
	// never for an entry first observed already settled via snapshot reseed.
	if !tr.First && view.Status != models.TxPending {
		s.dispatcher.TransactionSettled(view)
	}

	s.recomputeLedger()
}

func (s *Scope) applyWallet(ev models.ChangeEvent) {
	row, err := ev.WalletRow()
	if err != nil {
		util.ChangeEventsDroppedTotal.WithLabelValues("bad_row").Inc()
		return
	}
	s.promoteLive()
	util.ChangeEventsAppliedTotal.WithLabelValues(ev.Table).Inc()

	// The balance is replaced wholesale from the store's authoritative
	// value. No local arithmetic, so duplicates cannot cause drift.
	w := mapper.WalletView(row)
	s.st.wallet = &w
}

func (s *Scope) applySession(ev models.ChangeEvent) {
	row, err := ev.SessionRow()
	if err != nil || row.ID == "" {
		util.ChangeEventsDroppedTotal.WithLabelValues("bad_row").Inc()
		return
	}
	s.promoteLive()

	_, seen := s.st.sessions[row.ID]
	s.st.sessions[row.ID] = row
	util.ChangeEventsAppliedTotal.WithLabelValues(ev.Table).Inc()

	if !seen && ev.Kind == models.EventInserted {
		s.dispatcher.SessionAdded(mapper.SessionView(row, s.now()))
	}
}

func (s *Scope) recomputeOrderAggregates() {
	if s.key.Kind != ViewRider {
		return
	}
	delivered := 0
	var active []models.OrderView
	for _, o := range s.st.orders {
		switch {
		case o.Status == models.StatusDelivered:
			delivered++
		case !o.Status.IsTerminal():
			active = append(active, o)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	earnings := aggregate.Earnings(delivered, aggregate.EarningsConfig{
		BaseRate:       s.cfg.BaseDeliveryRate,
		BonusThreshold: s.cfg.BonusThreshold,
		BonusAmount:    s.cfg.BonusAmount,
	})
	s.st.earnings = &earnings
	s.st.batches = aggregate.Batches(active)
	for _, g := range s.st.batches {
		s.logger.Debug("batch group", zap.String("batch", aggregate.String(g)))
	}
}

func (s *Scope) recomputeLedger() {
	if s.key.Kind != ViewWallet {
		return
	}
	txs := make([]models.TransactionView, 0, len(s.st.transactions))
	for _, tx := range s.st.transactions {
		txs = append(txs, tx)
	}
	ledger := aggregate.Ledger(txs, s.cfg.CashbackRate)
	s.st.ledger = &ledger
}

// tick refreshes derived time-based fields: ETA minutes on orders still
// carrying an estimate, and the imminent-session-expiry warning.
func (s *Scope) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, o := range s.st.orders {
		if o.EstimatedDelivery == nil || o.Status.IsTerminal() {
			continue
		}
		o.ETAMinutes = mapper.ETAMinutes(o.EstimatedDelivery, now)
		s.st.orders[id] = o
	}

	if s.key.Kind == ViewSecurity && !s.st.expiryWarned && s.st.sessionEnd != nil {
		left := s.st.sessionEnd.Sub(now)
		if left > 0 && left <= s.cfg.SessionExpiryWarn {
			s.dispatcher.SessionExpiryImminent(int(left.Minutes()))
			s.st.expiryWarned = true
		}
	}
}

// Render produces the current view state for the presentation layer.
func (s *Scope) Render() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := ViewState{
		Kind:          s.key.Kind,
		Identity:      s.key.Identity,
		Source:        s.st.source,
		Live:          s.Live(),
		Notifications: s.ring.List(),
	}

	switch s.key.Kind {
	case ViewCustomer, ViewRider:
		for _, o := range s.st.orders {
			switch o.Status {
			case models.StatusDelivered:
				vs.CompletedOrders = append(vs.CompletedOrders, o)
			case models.StatusCancelled:
				vs.DiscardedOrders = append(vs.DiscardedOrders, o)
			default:
				vs.ActiveOrders = append(vs.ActiveOrders, o)
			}
		}
		sortOrders(vs.ActiveOrders)
		sortOrders(vs.CompletedOrders)
		sortOrders(vs.DiscardedOrders)
		vs.Earnings = s.st.earnings
		vs.Batches = s.st.batches
	case ViewWallet:
		for _, tx := range s.st.transactions {
			vs.Transactions = append(vs.Transactions, tx)
		}
		sort.Slice(vs.Transactions, func(i, j int) bool {
			return vs.Transactions[i].CreatedAt.After(vs.Transactions[j].CreatedAt)
		})
		vs.Wallet = s.st.wallet
		vs.Ledger = s.st.ledger
	case ViewSecurity:
		vs.Security = s.renderSecurity()
	}
	return vs
}

func (s *Scope) renderSecurity() *models.SecurityView {
	if s.st.security == nil && len(s.st.sessions) == 0 {
		return nil
	}
	profile := models.SecurityRow{UserID: s.key.Identity}
	if s.st.security != nil {
		profile = *s.st.security
	}
	sessions := make([]models.SessionRow, 0, len(s.st.sessions))
	for _, row := range s.st.sessions {
		sessions = append(sessions, row)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].IsCurrent != sessions[j].IsCurrent {
			return sessions[i].IsCurrent
		}
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
	view := mapper.SecurityView(profile, sessions, s.now())
	view.SessionExpiresAt = s.st.sessionEnd
	return &view
}

func sortOrders(orders []models.OrderView) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
