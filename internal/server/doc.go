// Package server wires the HTTP surface: the webhook and session endpoints,
// the Google OAuth connect flow, health probes and the dedicated metrics
// listener.
package server
