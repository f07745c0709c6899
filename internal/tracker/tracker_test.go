package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserveFirstSight(t *testing.T) {
	tr := New()

	transition, real := tr.Observe("order-1", "pending")

	assert.True(t, real)
	assert.True(t, transition.First)
	assert.Equal(t, "", transition.From)
	assert.Equal(t, "pending", transition.To)
}

func TestObserveReassertedStatusIsNoop(t *testing.T) {
	tr := New()
	tr.Observe("order-1", "confirmed")

	_, real := tr.Observe("order-1", "confirmed")
	assert.False(t, real)

	// Redelivery any number of times stays a no-op.
	_, real = tr.Observe("order-1", "confirmed")
	assert.False(t, real)
}

func TestObserveRealTransition(t *testing.T) {
	tr := New()
	tr.Observe("order-1", "confirmed")

	transition, real := tr.Observe("order-1", "preparing")

	assert.True(t, real)
	assert.False(t, transition.First)
	assert.Equal(t, "confirmed", transition.From)
	assert.Equal(t, "preparing", transition.To)
}

func TestSeedSuppressesFirstEvent(t *testing.T) {
	tr := New()
	tr.Seed("order-1", "preparing")

	// The store had already advanced before the stream connected; the
	// first event reasserting that status must classify as a no-op.
	_, real := tr.Observe("order-1", "preparing")
	assert.False(t, real)

	transition, real := tr.Observe("order-1", "ready")
	assert.True(t, real)
	assert.Equal(t, "preparing", transition.From)
}

func TestResetDiscardsHistory(t *testing.T) {
	tr := New()
	tr.Observe("order-1", "delivered")
	tr.Reset()

	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.Known("order-1"))

	// After a reset the same status counts as a first sighting again.
	transition, real := tr.Observe("order-1", "delivered")
	assert.True(t, real)
	assert.True(t, transition.First)
}

func TestEntitiesTrackedIndependently(t *testing.T) {
	tr := New()
	tr.Observe("order-1", "pending")

	transition, real := tr.Observe("order-2", "pending")
	assert.True(t, real)
	assert.True(t, transition.First)
	assert.Equal(t, 2, tr.Len())
}
