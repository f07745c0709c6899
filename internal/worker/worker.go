// Package worker runs the CDC relay: it consumes the transactional store's
// change topic and fans each event out to the per-scope Redis feed channels
// the subscribers listen on.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"live-sync/internal/broker"
	"live-sync/internal/feed"
	"live-sync/internal/models"
	"live-sync/internal/redisclient"
	"live-sync/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// envelope is the raw CDC record shape on the Kafka topic.
type envelope struct {
	EventID   string          `json:"event_id"`
	Table     string          `json:"table"`
	Kind      string          `json:"kind"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// routing holds the identity columns a row can be scoped by.
type routing struct {
	CustomerID string  `json:"customer_id"`
	RiderID    *string `json:"rider_id"`
	UserID     string  `json:"user_id"`
}

// ChangeRelay consumes CDC records and republishes them to scoped channels.
type ChangeRelay struct {
	consumer *broker.Consumer
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewChangeRelay creates a new relay.
func NewChangeRelay(consumer *broker.Consumer, redis *redisclient.Client) *ChangeRelay {
	return &ChangeRelay{
		consumer: consumer,
		redis:    redis,
		logger:   util.NamedLogger("relay"),
	}
}

// Start starts the relay loop. It blocks until the context is cancelled.
func (r *ChangeRelay) Start(ctx context.Context) error {
	r.logger.Info("Starting change relay")
	return r.consumer.StartConsuming(ctx, r.handleMessage)
}

// Stop stops the relay.
func (r *ChangeRelay) Stop() error {
	r.logger.Info("Stopping change relay")
	return r.consumer.Close()
}

func (r *ChangeRelay) handleMessage(ctx context.Context, msg kafka.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		util.ChangeEventsDroppedTotal.WithLabelValues("bad_envelope").Inc()
		r.logger.Warn("Undecodable CDC record", zap.Error(err))
		// Committing a poison record is deliberate: replaying it can
		// never succeed.
		return nil
	}

	kind := models.EventKind(env.Kind)
	if kind != models.EventInserted && kind != models.EventUpdated {
		util.ChangeEventsDroppedTotal.WithLabelValues("unknown_kind").Inc()
		return nil
	}

	if env.EventID == "" {
		env.EventID = uuid.New().String()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}

	event := models.ChangeEvent{
		EventID:   env.EventID,
		Kind:      kind,
		Table:     env.Table,
		New:       env.New,
		Old:       env.Old,
		Timestamp: env.Timestamp,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// A wallet change makes the cached balance stale; drop it so the next
	// snapshot load reads the store.
	if env.Table == models.TableWallets {
		var rt routing
		_ = json.Unmarshal(env.New, &rt)
		if rt.UserID != "" {
			if err := r.redis.InvalidateWalletBalance(ctx, rt.UserID); err != nil {
				r.logger.Warn("Failed to invalidate wallet cache",
					zap.String("user_id", rt.UserID), zap.Error(err))
			}
		}
	}

	for _, channel := range channelsFor(env.Table, env.New) {
		if err := r.redis.PublishChange(ctx, channel, payload); err != nil {
			r.logger.Error("Failed to publish change",
				zap.String("channel", channel), zap.Error(err))
			return err
		}
	}
	return nil
}

// channelsFor resolves the scoped channels an event belongs on. An order
// fans out to both its customer's and, when assigned, its rider's channel.
func channelsFor(table string, row json.RawMessage) []string {
	var r routing
	_ = json.Unmarshal(row, &r)

	switch table {
	case models.TableOrders:
		var channels []string
		if r.CustomerID != "" {
			channels = append(channels, feed.OrdersByCustomer(r.CustomerID))
		}
		if r.RiderID != nil && *r.RiderID != "" {
			channels = append(channels, feed.OrdersByRider(*r.RiderID))
		}
		if len(channels) > 0 {
			return channels
		}
	case models.TableTransactions:
		if r.UserID != "" {
			return []string{feed.TransactionsByUser(r.UserID)}
		}
	case models.TableWallets:
		if r.UserID != "" {
			return []string{feed.WalletByUser(r.UserID)}
		}
	case models.TableSessions:
		if r.UserID != "" {
			return []string{feed.SessionsByUser(r.UserID)}
		}
	}
	util.ChangeEventsDroppedTotal.WithLabelValues("unroutable").Inc()
	return nil
}
