package proposal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danmuck/relayctl/internal/presence"
)

// Action is a response to a pending proposal.
type Action string

const (
	ActionAccept  Action = "ACCEPT"
	ActionDecline Action = "DECLINE"
	ActionCounter Action = "COUNTER"
)

// Valid reports whether the action is one of the known responses.
func (a Action) Valid() bool {
	switch a {
	case ActionAccept, ActionDecline, ActionCounter:
		return true
	}
	return false
}

// CounterPolicy controls what a COUNTER response does to proposal lifetime.
type CounterPolicy string

const (
	// CounterTerminal deletes the proposal on any response.
	CounterTerminal CounterPolicy = "terminal"
	// CounterRearm keeps the proposal pending under the same id with a fresh
	// TTL window, swapping direction so the countered party answers next.
	CounterRearm CounterPolicy = "rearm"
)

// Valid reports whether the policy is a known one.
func (p CounterPolicy) Valid() bool {
	return p == CounterTerminal || p == CounterRearm
}

// Payload carries the sender-facing proposal content.
type Payload struct {
	FromName     string
	ProposedTime string
}

// Delivery is the outcome of a successful response: the message the caller
// relays to the connection that is waiting on this proposal.
type Delivery struct {
	ID          string
	Target      presence.Conn
	FromAddress string
	Action      Action
	NewTime     string
}

type pending struct {
	fromAddress string
	from        presence.Conn
	toAddress   string
	to          presence.Conn
	payload     Payload
	createdAt   time.Time
	expiresAt   time.Time

	// gen invalidates a scheduled expiry that raced with a response or rearm.
	gen   uint64
	timer *time.Timer
}

// Tracker is a keyed delayed-action map of pending proposals. All mutation is
// serialized behind one mutex; each entry carries its own cancellable deadline.
type Tracker struct {
	mu      sync.Mutex
	items   map[string]*pending
	ttl     time.Duration
	policy  CounterPolicy
	stopped bool

	// onExpire observes silent expiry. The original sender is never notified;
	// this hook exists for logs and metrics only.
	onExpire func(id string)
}

// NewTracker creates a tracker whose proposals expire ttl after creation.
func NewTracker(ttl time.Duration, policy CounterPolicy) *Tracker {
	if !policy.Valid() {
		policy = CounterTerminal
	}
	return &Tracker{
		items:  make(map[string]*pending),
		ttl:    ttl,
		policy: policy,
	}
}

// SetExpiryHook installs an observer called after a proposal expires silently.
func (t *Tracker) SetExpiryHook(fn func(id string)) {
	t.mu.Lock()
	t.onExpire = fn
	t.mu.Unlock()
}

// Create stores a new Pending proposal and arms its expiry timer. The returned
// id is opaque, unique, and never reused.
func (t *Tracker) Create(fromAddress string, from presence.Conn, toAddress string, to presence.Conn, payload Payload) (string, time.Time) {
	id := uuid.New().String()
	now := time.Now()
	p := &pending{
		fromAddress: fromAddress,
		from:        from,
		toAddress:   toAddress,
		to:          to,
		payload:     payload,
		createdAt:   now,
		expiresAt:   now.Add(t.ttl),
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return id, p.expiresAt
	}
	t.items[id] = p
	t.armLocked(id, p)
	t.mu.Unlock()

	return id, p.expiresAt
}

// armLocked schedules expiry for the entry's current generation.
func (t *Tracker) armLocked(id string, p *pending) {
	gen := p.gen
	p.timer = time.AfterFunc(time.Until(p.expiresAt), func() {
		t.expire(id, gen)
	})
}

// expire deletes the proposal silently. A response or rearm that won the race
// bumped the generation, making this firing a no-op.
func (t *Tracker) expire(id string, gen uint64) {
	t.mu.Lock()
	p, ok := t.items[id]
	if !ok || p.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.items, id)
	hook := t.onExpire
	t.mu.Unlock()

	if hook != nil {
		hook(id)
	}
}

// Respond resolves a pending proposal. An unknown, already-answered, or
// expired id reports ok=false (stale) with no side effect. Accept and decline
// delete the proposal; counter follows the configured policy.
func (t *Tracker) Respond(id string, action Action, counterTime string) (Delivery, bool) {
	if !action.Valid() {
		return Delivery{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.items[id]
	if !ok {
		return Delivery{}, false
	}

	p.timer.Stop()
	p.gen++

	delivery := Delivery{
		ID:          id,
		Target:      p.from,
		FromAddress: p.toAddress,
		Action:      action,
		NewTime:     p.payload.ProposedTime,
	}

	if action == ActionCounter {
		delivery.NewTime = counterTime
		if t.policy == CounterRearm && !t.stopped {
			// Re-arm a fresh window under the same id; the proposal now waits
			// on the original sender, so direction flips.
			p.fromAddress, p.toAddress = p.toAddress, p.fromAddress
			p.from, p.to = p.to, p.from
			p.payload.ProposedTime = counterTime
			p.expiresAt = time.Now().Add(t.ttl)
			t.armLocked(id, p)
			return delivery, true
		}
	}

	delete(t.items, id)
	return delivery, true
}

// RemoveExpired backstops per-entry timers missed across process suspension.
// Returns the ids it evicted.
func (t *Tracker) RemoveExpired(now time.Time) []string {
	t.mu.Lock()
	var removed []string
	for id, p := range t.items {
		if !p.expiresAt.After(now) {
			p.timer.Stop()
			delete(t.items, id)
			removed = append(removed, id)
		}
	}
	hook := t.onExpire
	t.mu.Unlock()

	if hook != nil {
		for _, id := range removed {
			hook(id)
		}
	}
	return removed
}

// Has reports whether id is still pending.
func (t *Tracker) Has(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.items[id]
	return ok
}

// Len returns the number of pending proposals.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Stop cancels all timers and rejects new proposals. Used at shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for id, p := range t.items {
		p.timer.Stop()
		delete(t.items, id)
	}
}
