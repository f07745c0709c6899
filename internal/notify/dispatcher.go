package notify

import (
	"fmt"

	"live-sync/internal/models"
	"live-sync/internal/util"
)

// statusMessage is a row of the fixed severity lookup table keyed by the
// new customer-facing status.
type statusMessage struct {
	severity Severity
	title    string
	message  string
}

var orderStatusMessages = map[models.OrderStatus]statusMessage{
	models.StatusConfirmed: {
		severity: SeveritySuccess,
		title:    "Order Confirmed",
		message:  "Order %s has been confirmed",
	},
	models.StatusPreparing: {
		severity: SeverityInfo,
		title:    "Preparing Your Order",
		message:  "Order %s is being prepared",
	},
	models.StatusReady: {
		severity: SeverityInfo,
		title:    "Order Ready",
		message:  "Order %s is packed and ready",
	},
	models.StatusOutForDelivery: {
		severity: SeverityInfo,
		title:    "Out for Delivery",
		message:  "Order %s is on its way",
	},
	models.StatusDelivered: {
		severity: SeveritySuccess,
		title:    "Order Delivered",
		message:  "Order %s has been delivered",
	},
	models.StatusCancelled: {
		severity: SeverityError,
		title:    "Order Cancelled",
		message:  "Order %s was cancelled",
	},
}

// Dispatcher renders classified transitions into exactly one notification
// each. Deduplication lives upstream in the tracker: the dispatcher only
// ever sees real transitions, so it stays stateless apart from its sink.
type Dispatcher struct {
	sink Sink
}

// NewDispatcher wires a dispatcher to a sink.
func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

func (d *Dispatcher) emit(severity Severity, title, message string) {
	util.NotificationsEmittedTotal.WithLabelValues(string(severity)).Inc()
	d.sink.Notify(severity, title, message)
}

// OrderTransition fires the message for an order's new status. Unknown
// statuses (including a first observation of pending) emit nothing.
func (d *Dispatcher) OrderTransition(order models.OrderView, to models.OrderStatus) {
	msg, ok := orderStatusMessages[to]
	if !ok {
		return
	}
	body := fmt.Sprintf(msg.message, order.OrderNumber)
	if to == models.StatusOutForDelivery && order.ETAMinutes != nil {
		body = fmt.Sprintf("%s, arriving in ~%d min", body, *order.ETAMinutes)
	}
	d.emit(msg.severity, msg.title, body)
}

// TransactionSettled fires the settle message for a pending ledger entry
// reaching completed or failed. The tracker guarantees at most one call per
// settlement.
func (d *Dispatcher) TransactionSettled(tx models.TransactionView) {
	switch tx.Status {
	case models.TxCompleted:
		d.emit(SeveritySuccess, "Transaction Completed",
			fmt.Sprintf("%s settled successfully", tx.Description))
	case models.TxFailed:
		d.emit(SeverityError, "Transaction Failed",
			fmt.Sprintf("%s could not be processed", tx.Description))
	}
}

// SessionAdded warns about a login session first observed on the stream.
func (d *Dispatcher) SessionAdded(session models.SessionView) {
	d.emit(SeverityWarning, "New Login",
		fmt.Sprintf("New session on %s from %s", session.Device, session.Location))
}

// SessionExpiryImminent warns that the current session is about to expire.
func (d *Dispatcher) SessionExpiryImminent(minutesLeft int) {
	d.emit(SeverityWarning, "Session Expiring",
		fmt.Sprintf("Your session expires in %d min", minutesLeft))
}
