// Package feed delivers typed change events over per-scope push channels.
//
// A channel is scoped to one (identity, table, filter) tuple, named like
// "cdc:orders:customer:42". The CDC relay worker publishes into these
// channels; reconciliation scopes consume them. Channels close idempotently
// and re-subscribing a scope key tears down the previous channel first, so
// a scope never ends up with orphaned duplicate listeners.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"live-sync/internal/models"
	"live-sync/internal/redisclient"
	"live-sync/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Scope key builders. The filter value is always the identity the scope is
// mounted for.
func OrdersByCustomer(customerID string) string {
	return "cdc:" + models.TableOrders + ":customer:" + customerID
}

func OrdersByRider(riderID string) string {
	return "cdc:" + models.TableOrders + ":rider:" + riderID
}

func TransactionsByUser(userID string) string {
	return "cdc:" + models.TableTransactions + ":user:" + userID
}

func WalletByUser(userID string) string {
	return "cdc:" + models.TableWallets + ":user:" + userID
}

func SessionsByUser(userID string) string {
	return "cdc:" + models.TableSessions + ":user:" + userID
}

// Channel is one push channel handle. Close is safe to call any number of
// times, including after the underlying subscription already failed.
type Channel struct {
	key       string
	pubsub    *redis.PubSub
	events    chan models.ChangeEvent
	done      chan struct{}
	live      atomic.Bool
	closeOnce sync.Once
	logger    *zap.Logger
}

// Events returns the stream of decoded change events. The channel is closed
// when the subscription ends.
func (c *Channel) Events() <-chan models.ChangeEvent {
	return c.events
}

// Key returns the scope key this channel is bound to.
func (c *Channel) Key() string {
	return c.key
}

// Live reports whether the push subscription is currently connected.
func (c *Channel) Live() bool {
	return c.live.Load()
}

// Close tears the channel down. Idempotent, never panics.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.live.Store(false)
		if c.pubsub != nil {
			util.LiveChannels.Dec()
			if err := c.pubsub.Close(); err != nil {
				c.logger.Debug("pubsub close", zap.String("key", c.key), zap.Error(err))
			}
		}
		close(c.done)
	})
}

func (c *Channel) run() {
	defer close(c.events)
	src := c.pubsub.Channel()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-src:
			if !ok {
				c.live.Store(false)
				return
			}
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				util.ChangeEventsDroppedTotal.WithLabelValues("malformed").Inc()
				c.logger.Warn("malformed change event",
					zap.String("key", c.key), zap.Error(err))
				continue
			}
			util.ChangeEventsReceivedTotal.WithLabelValues(ev.Table, string(ev.Kind)).Inc()
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}

// Subscriber opens and owns push channels. It keeps at most one channel per
// scope key.
type Subscriber struct {
	client   *redisclient.Client
	mu       sync.Mutex
	channels map[string]*Channel
	logger   *zap.Logger
}

// NewSubscriber creates a subscriber over the Redis transport.
func NewSubscriber(client *redisclient.Client) *Subscriber {
	return &Subscriber{
		client:   client,
		channels: make(map[string]*Channel),
		logger:   util.NamedLogger("feed"),
	}
}

// Subscribe opens a push channel for the scope key. Any channel previously
// held for the same key is closed first. A failed subscription still returns
// a usable handle: its event stream is empty and Live reports false, so the
// consuming view renders its snapshot with the live indicator off.
func (s *Subscriber) Subscribe(ctx context.Context, key string) *Channel {
	s.mu.Lock()
	if prev, ok := s.channels[key]; ok {
		prev.Close()
		delete(s.channels, key)
	}
	s.mu.Unlock()

	ch := &Channel{
		key:    key,
		events: make(chan models.ChangeEvent, 64),
		done:   make(chan struct{}),
		logger: s.logger,
	}

	pubsub := s.client.SubscribeChange(ctx, key)
	if _, err := pubsub.Receive(ctx); err != nil {
		s.logger.Warn("subscribe failed, channel stays not-live",
			zap.String("key", key), zap.Error(err))
		_ = pubsub.Close()
		close(ch.events)
		return ch
	}

	ch.pubsub = pubsub
	ch.live.Store(true)
	util.LiveChannels.Inc()
	go ch.run()

	s.mu.Lock()
	s.channels[key] = ch
	s.mu.Unlock()

	s.logger.Info("channel opened", zap.String("key", key))
	return ch
}

// Release closes and forgets the channel for a scope key.
func (s *Subscriber) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[key]; ok {
		ch.Close()
		delete(s.channels, key)
	}
}

// CloseAll tears down every open channel.
func (s *Subscriber) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, ch := range s.channels {
		ch.Close()
		delete(s.channels, key)
	}
}
