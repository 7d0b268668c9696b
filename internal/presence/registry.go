package presence

import (
	"strings"
	"sync"
	"time"
)

// MaxAddressLen bounds client-chosen addresses.
const MaxAddressLen = 32

// Conn is the handle the registry binds an address to. The registry never
// owns the connection; lifecycle is managed by the transport layer.
type Conn interface {
	ID() string
	Send(v any) error
	Close() error
}

// Entry is one live address binding.
type Entry struct {
	Address   string
	Name      string
	Conn      Conn
	BoundAt   time.Time
	ExpiresAt time.Time // zero when the registry runs without TTL
}

// Expires reports whether the entry carries a lifetime.
func (e Entry) Expires() bool {
	return !e.ExpiresAt.IsZero()
}

// Normalize folds an address to its canonical form: trimmed, uppercased.
func Normalize(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

// Registry maps normalized addresses to live connections. At most one entry
// exists per address; re-registration replaces the prior entry.
type Registry struct {
	mu            sync.Mutex
	entries       map[string]Entry
	ttl           time.Duration
	closeReplaced bool
}

// NewRegistry creates an empty registry. A zero ttl disables expiry and
// entries live until their connection disconnects.
func NewRegistry(ttl time.Duration, closeReplaced bool) *Registry {
	return &Registry{
		entries:       make(map[string]Entry),
		ttl:           ttl,
		closeReplaced: closeReplaced,
	}
}

// TTL returns the configured entry lifetime (zero means none).
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Register binds address to conn, replacing any prior binding for the same
// normalized address (last writer wins). Requests with an empty address or
// name, or an address over MaxAddressLen, are ignored and report ok=false.
func (r *Registry) Register(address, name string, conn Conn) (Entry, bool) {
	addr := Normalize(address)
	name = strings.TrimSpace(name)
	if addr == "" || name == "" || len(addr) > MaxAddressLen {
		return Entry{}, false
	}

	now := time.Now()
	entry := Entry{
		Address: addr,
		Name:    name,
		Conn:    conn,
		BoundAt: now,
	}
	if r.ttl > 0 {
		entry.ExpiresAt = now.Add(r.ttl)
	}

	r.mu.Lock()
	prior, replaced := r.entries[addr]
	r.entries[addr] = entry
	r.mu.Unlock()

	if replaced && r.closeReplaced && prior.Conn.ID() != conn.ID() {
		_ = prior.Conn.Close()
	}
	return entry, true
}

// Lookup returns the entry bound to address, case-insensitively. A miss is an
// expected outcome, not a fault.
func (r *Registry) Lookup(address string) (Entry, bool) {
	addr := Normalize(address)
	r.mu.Lock()
	entry, ok := r.entries[addr]
	r.mu.Unlock()
	return entry, ok
}

// RemoveByConn removes the entry owned by conn, if conn still owns one.
// A connection whose address was since re-registered by another connection
// removes nothing. Returns the removed address.
func (r *Registry) RemoveByConn(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, entry := range r.entries {
		if entry.Conn.ID() == conn.ID() {
			delete(r.entries, addr)
			return addr, true
		}
	}
	return "", false
}

// RemoveExpired evicts all entries whose deadline has passed and closes their
// bound connections. Safe to call on any schedule; a no-TTL registry never
// expires anything.
func (r *Registry) RemoveExpired(now time.Time) []Entry {
	r.mu.Lock()
	var removed []Entry
	for addr, entry := range r.entries {
		if entry.Expires() && !entry.ExpiresAt.After(now) {
			delete(r.entries, addr)
			removed = append(removed, entry)
		}
	}
	r.mu.Unlock()

	for _, entry := range removed {
		_ = entry.Conn.Close()
	}
	return removed
}

// Len returns the number of live bindings.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
