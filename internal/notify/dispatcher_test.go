package notify

import (
	"testing"
	"time"

	"live-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(number string, status models.OrderStatus) models.OrderView {
	return models.OrderView{ID: "o1", OrderNumber: number, Status: status}
}

func TestOrderTransitionSeverityTable(t *testing.T) {
	cases := []struct {
		status   models.OrderStatus
		severity Severity
	}{
		{models.StatusConfirmed, SeveritySuccess},
		{models.StatusPreparing, SeverityInfo},
		{models.StatusReady, SeverityInfo},
		{models.StatusOutForDelivery, SeverityInfo},
		{models.StatusDelivered, SeveritySuccess},
		{models.StatusCancelled, SeverityError},
	}

	for _, tc := range cases {
		sink := NewRingSink(10)
		d := NewDispatcher(sink)
		d.OrderTransition(testOrder("ORD-1", tc.status), tc.status)

		got := sink.List()
		require.Len(t, got, 1, string(tc.status))
		assert.Equal(t, tc.severity, got[0].Severity, string(tc.status))
		assert.Contains(t, got[0].Message, "ORD-1")
	}
}

func TestOrderTransitionPendingEmitsNothing(t *testing.T) {
	sink := NewRingSink(10)
	d := NewDispatcher(sink)

	d.OrderTransition(testOrder("ORD-1", models.StatusPending), models.StatusPending)

	assert.Empty(t, sink.List())
}

func TestOutForDeliveryIncludesETA(t *testing.T) {
	sink := NewRingSink(10)
	d := NewDispatcher(sink)

	eta := 12
	o := testOrder("ORD-2", models.StatusOutForDelivery)
	o.ETAMinutes = &eta
	d.OrderTransition(o, models.StatusOutForDelivery)

	got := sink.List()
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "12 min")
}

func TestTransactionSettled(t *testing.T) {
	sink := NewRingSink(10)
	d := NewDispatcher(sink)

	d.TransactionSettled(models.TransactionView{Description: "Wallet top-up", Status: models.TxCompleted})
	d.TransactionSettled(models.TransactionView{Description: "Refund", Status: models.TxFailed})
	// Pending entries never notify.
	d.TransactionSettled(models.TransactionView{Description: "Hold", Status: models.TxPending})

	got := sink.List()
	require.Len(t, got, 2)
	assert.Equal(t, SeveritySuccess, got[0].Severity)
	assert.Equal(t, SeverityError, got[1].Severity)
}

func TestSessionNotifications(t *testing.T) {
	sink := NewRingSink(10)
	d := NewDispatcher(sink)

	d.SessionAdded(models.SessionView{Device: "Android App", Location: "Hostel Wi-Fi"})
	d.SessionExpiryImminent(4)

	got := sink.List()
	require.Len(t, got, 2)
	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.Contains(t, got[0].Message, "Android App")
	assert.Equal(t, SeverityWarning, got[1].Severity)
	assert.Contains(t, got[1].Message, "4 min")
}

func TestRingSinkBounds(t *testing.T) {
	sink := NewRingSink(3)
	for i := 0; i < 5; i++ {
		sink.Notify(SeverityInfo, "t", "m")
	}

	got := sink.List()
	assert.Len(t, got, 3)
	for _, n := range got {
		assert.NotEmpty(t, n.ID)
		assert.WithinDuration(t, time.Now(), n.CreatedAt, time.Minute)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a := NewRingSink(10)
	b := NewRingSink(10)
	MultiSink{a, b}.Notify(SeverityInfo, "t", "m")

	assert.Len(t, a.List(), 1)
	assert.Len(t, b.List(), 1)
}
