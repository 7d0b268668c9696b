// Package hub owns per-connection lifecycle and the serving surface.
//
// Ownership boundary:
// - WebSocket accept/upgrade and connection handles
// - message dispatch to presence/proposal/relay
// - disconnect cleanup
// - the reaper sweep
//
// Hub does not own address bindings or proposal state; it drives them.
package hub
