// Package proposal owns pending knock/proposal state.
//
// Ownership boundary:
// - proposal id allocation
// - time-bounded pending windows with silent expiry
// - at-most-one delivered outcome per proposal
//
// Proposal does not deliver messages; it hands the target connection back to
// the caller.
package proposal
