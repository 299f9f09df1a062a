// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (envelope.go, errors.go,
// broker.go, socket.go) with shared types and cross-cutting contracts.
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
