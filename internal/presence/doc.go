// Package presence owns the address directory.
//
// Ownership boundary:
// - address normalization
// - address -> connection binding with replace semantics
// - TTL eviction of stale bindings
//
// Presence does not send application messages; relaying is owned by relay.
package presence
