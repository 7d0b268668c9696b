package proposal

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/relayctl/internal/testutil/testlog"
)

type stubConn struct {
	id string

	mu   sync.Mutex
	sent []any
}

func (c *stubConn) ID() string { return c.id }

func (c *stubConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestRespondAcceptDeliversOnceToSender(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Minute, CounterTerminal)
	alice := &stubConn{id: "c1"}
	bob := &stubConn{id: "c2"}

	id, expiresAt := tr.Create("ALPHA", alice, "BETA", bob, Payload{FromName: "Alice", ProposedTime: "18:00"})
	if id == "" {
		t.Fatalf("empty proposal id")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("deadline not in the future: %v", expiresAt)
	}
	if !tr.Has(id) {
		t.Fatalf("proposal not pending after create")
	}

	delivery, ok := tr.Respond(id, ActionAccept, "")
	if !ok {
		t.Fatalf("respond reported stale for pending proposal")
	}
	if delivery.Target.ID() != "c1" {
		t.Fatalf("response routed to %q, want original sender", delivery.Target.ID())
	}
	if delivery.Action != ActionAccept || delivery.NewTime != "18:00" {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
	if delivery.FromAddress != "BETA" {
		t.Fatalf("unexpected responder address: %q", delivery.FromAddress)
	}
	if tr.Has(id) {
		t.Fatalf("proposal survived terminal response")
	}

	if _, ok := tr.Respond(id, ActionDecline, ""); ok {
		t.Fatalf("second response not stale")
	}
}

func TestRespondDeclineCarriesOriginalTime(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Minute, CounterTerminal)
	id, _ := tr.Create("ALPHA", &stubConn{id: "c1"}, "BETA", &stubConn{id: "c2"}, Payload{ProposedTime: "18:00"})

	delivery, ok := tr.Respond(id, ActionDecline, "ignored")
	if !ok {
		t.Fatalf("respond reported stale")
	}
	if delivery.Action != ActionDecline || delivery.NewTime != "18:00" {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
}

func TestRespondUnknownIDAndInvalidAction(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Minute, CounterTerminal)
	if _, ok := tr.Respond("nope", ActionAccept, ""); ok {
		t.Fatalf("unknown id not stale")
	}

	id, _ := tr.Create("ALPHA", &stubConn{id: "c1"}, "BETA", &stubConn{id: "c2"}, Payload{})
	if _, ok := tr.Respond(id, Action("MAYBE"), ""); ok {
		t.Fatalf("invalid action accepted")
	}
	if !tr.Has(id) {
		t.Fatalf("invalid action mutated tracker state")
	}
}

func TestCounterTerminalDeletesProposal(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Minute, CounterTerminal)
	id, _ := tr.Create("ALPHA", &stubConn{id: "c1"}, "BETA", &stubConn{id: "c2"}, Payload{ProposedTime: "18:00"})

	delivery, ok := tr.Respond(id, ActionCounter, "19:30")
	if !ok {
		t.Fatalf("counter reported stale")
	}
	if delivery.NewTime != "19:30" {
		t.Fatalf("counter time not forwarded: %+v", delivery)
	}
	if tr.Has(id) {
		t.Fatalf("proposal survived counter under terminal policy")
	}
}

func TestCounterRearmFlipsDirection(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Minute, CounterRearm)
	alice := &stubConn{id: "c1"}
	bob := &stubConn{id: "c2"}
	id, _ := tr.Create("ALPHA", alice, "BETA", bob, Payload{ProposedTime: "18:00"})

	first, ok := tr.Respond(id, ActionCounter, "19:30")
	if !ok {
		t.Fatalf("counter reported stale")
	}
	if first.Target.ID() != "c1" {
		t.Fatalf("counter routed to %q, want original sender", first.Target.ID())
	}
	if !tr.Has(id) {
		t.Fatalf("rearm policy deleted the proposal")
	}

	// The original sender answers the counter; delivery flips back to Bob.
	second, ok := tr.Respond(id, ActionAccept, "")
	if !ok {
		t.Fatalf("respond after rearm reported stale")
	}
	if second.Target.ID() != "c2" {
		t.Fatalf("rearmed response routed to %q, want counter party", second.Target.ID())
	}
	if second.NewTime != "19:30" {
		t.Fatalf("rearmed proposal lost counter time: %+v", second)
	}
	if tr.Has(id) {
		t.Fatalf("proposal survived terminal accept after rearm")
	}
}

func TestExpiryIsSilentAndFinal(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(20*time.Millisecond, CounterTerminal)
	var expired atomic.Int64
	tr.SetExpiryHook(func(string) { expired.Add(1) })

	alice := &stubConn{id: "c1"}
	id, _ := tr.Create("ALPHA", alice, "BETA", &stubConn{id: "c2"}, Payload{ProposedTime: "18:00"})

	deadline := time.Now().Add(2 * time.Second)
	for tr.Has(id) {
		if time.Now().After(deadline) {
			t.Fatalf("proposal never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := expired.Load(); got != 1 {
		t.Fatalf("expiry hook fired %d times, want 1", got)
	}
	if alice.sentCount() != 0 {
		t.Fatalf("sender was notified of expiry: %v", alice.sent)
	}
	if _, ok := tr.Respond(id, ActionAccept, ""); ok {
		t.Fatalf("response after expiry not stale")
	}
}

func TestRemoveExpiredBackstop(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Hour, CounterTerminal)
	var expired atomic.Int64
	tr.SetExpiryHook(func(string) { expired.Add(1) })

	idA, _ := tr.Create("ALPHA", &stubConn{id: "c1"}, "BETA", &stubConn{id: "c2"}, Payload{})
	idB, _ := tr.Create("GAMMA", &stubConn{id: "c3"}, "DELTA", &stubConn{id: "c4"}, Payload{})

	if removed := tr.RemoveExpired(time.Now()); len(removed) != 0 {
		t.Fatalf("fresh proposals evicted: %v", removed)
	}
	removed := tr.RemoveExpired(time.Now().Add(2 * time.Hour))
	if len(removed) != 2 {
		t.Fatalf("expected both proposals evicted, got %v", removed)
	}
	if expired.Load() != 2 {
		t.Fatalf("expiry hook fired %d times, want 2", expired.Load())
	}
	if tr.Has(idA) || tr.Has(idB) {
		t.Fatalf("evicted proposals still pending")
	}
}

func TestStopCancelsPendingProposals(t *testing.T) {
	testlog.Start(t)

	tr := NewTracker(time.Minute, CounterTerminal)
	id, _ := tr.Create("ALPHA", &stubConn{id: "c1"}, "BETA", &stubConn{id: "c2"}, Payload{})

	tr.Stop()
	if tr.Len() != 0 {
		t.Fatalf("tracker not drained by stop")
	}
	if _, ok := tr.Respond(id, ActionAccept, ""); ok {
		t.Fatalf("response accepted after stop")
	}
}
