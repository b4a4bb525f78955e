package notify

import (
	"fmt"
	"time"

	"ipsagent/internal"
)

type EntityKind string

const (
	KindRequest  EntityKind = "request"
	KindDelivery EntityKind = "delivery"
)

type observedState struct {
	status internal.Status
	at     time.Time
}

// Transition is one observed status change. The first observation of an
// entity never produces a transition; it only seeds the tracker.
type Transition struct {
	Kind     EntityKind
	EntityID int64
	From     internal.Status
	To       internal.Status
	Request  *internal.MaterialRequest
	Delivery *internal.Delivery
	At       time.Time
}

// Key is the dedup key for the transition's reached state, unique per
// (entity, status) pair.
func (t Transition) Key() string {
	if t.Kind == KindDelivery {
		return fmt.Sprintf("delivery-%d::%s", t.EntityID, t.To)
	}
	return fmt.Sprintf("%d::%s", t.EntityID, t.To)
}

// Tracker owns the last-observed state used for edge detection. It is
// in-memory and per poller instance; durable dedup of what the user has
// already been shown lives in the seen set, not here.
type Tracker struct {
	states map[string]observedState
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]observedState),
		now:    time.Now,
	}
}

func (t *Tracker) ObserveRequests(requests []internal.MaterialRequest) []Transition {
	var out []Transition
	for i := range requests {
		req := requests[i]
		key := fmt.Sprintf("mr-%d", req.ID)
		if from, changed := t.observe(key, req.Status); changed {
			out = append(out, Transition{
				Kind:     KindRequest,
				EntityID: req.ID,
				From:     from,
				To:       req.Status,
				Request:  &req,
				At:       t.now(),
			})
		}
	}
	return out
}

func (t *Tracker) ObserveDeliveries(deliveries []internal.Delivery) []Transition {
	var out []Transition
	for i := range deliveries {
		del := deliveries[i]
		key := fmt.Sprintf("d-%d", del.ID)
		if from, changed := t.observe(key, del.Status); changed {
			out = append(out, Transition{
				Kind:     KindDelivery,
				EntityID: del.ID,
				From:     from,
				To:       del.Status,
				Delivery: &del,
				At:       t.now(),
			})
		}
	}
	return out
}

func (t *Tracker) observe(key string, status internal.Status) (internal.Status, bool) {
	last, tracked := t.states[key]
	t.states[key] = observedState{status: status, at: t.now()}

	if !tracked {
		return "", false
	}
	if last.status == status {
		return last.status, false
	}
	return last.status, true
}

// Reset drops all tracked state, e.g. on logout or when polling is
// disabled. The next observation seeds again without notifying.
func (t *Tracker) Reset() {
	t.states = make(map[string]observedState)
}
