// Package protocol owns the client message contract.
//
// Ownership boundary:
// - message type discriminators (both naming families the clients use)
// - payload shapes and field aliases
// - decode with required-field validation
//
// Protocol does not route or deliver; dispatch is owned by hub.
package protocol
