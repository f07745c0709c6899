// Package tracker classifies incoming change events as real transitions or
// redelivery no-ops by remembering the last-observed raw status per entity.
//
// A Tracker is owned by exactly one reconciliation scope and is discarded
// with it; it must never be shared across identities.
package tracker

// Transition is a classified status change for one entity.
type Transition struct {
	EntityID string
	From     string
	To       string
	// First is true when the entity had no previously observed status,
	// i.e. the event introduced the entity rather than transitioned it.
	First bool
}

// Tracker maps entity id to the last raw status this process observed.
type Tracker struct {
	last map[string]string
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{last: make(map[string]string)}
}

// Seed records a status without reporting a transition. The snapshot loader
// uses this so the first stream event for an already-advanced row is
// correctly classified as a no-op.
func (t *Tracker) Seed(entityID, status string) {
	t.last[entityID] = status
}

// Observe compares an incoming status against the stored one. It returns
// ok=false for a reasserted status (no-op), and the transition otherwise,
// updating the stored status. Push transports may redeliver; this is the
// idempotence guard that keeps redelivery from double-firing notifications.
func (t *Tracker) Observe(entityID, status string) (Transition, bool) {
	prev, seen := t.last[entityID]
	if seen && prev == status {
		return Transition{}, false
	}
	t.last[entityID] = status
	return Transition{
		EntityID: entityID,
		From:     prev,
		To:       status,
		First:    !seen,
	}, true
}

// Known reports whether the entity has an observed status.
func (t *Tracker) Known(entityID string) bool {
	_, ok := t.last[entityID]
	return ok
}

// Len returns the number of tracked entities.
func (t *Tracker) Len() int {
	return len(t.last)
}

// Reset discards all tracked statuses. Called on identity change so that a
// new scope never inherits "already seen" state from the previous one.
func (t *Tracker) Reset() {
	t.last = make(map[string]string)
}
