// Package manager owns the real-time connection registry and its delivery
// policy.
//
// It registers accepted client connections, fans envelopes out to them,
// bridges a shared pub/sub channel for cross-instance delivery, and evicts
// connections whose heartbeats go stale. All registry mutations run under a
// single lock so the connection map and the per-user index never disagree.
package manager
