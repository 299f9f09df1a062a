// Package server provides the HTTP surface: the WebSocket upgrade endpoint,
// health checks, metrics, and registry statistics.
//
// The upgrade handler authenticates the client, wraps the socket, hands it
// to the connection manager, and runs the per-connection read loop that
// classifies inbound frames.
package server
