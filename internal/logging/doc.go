// Package logging provides slog attribute helpers and PII-safe formatting
// used throughout the application. User identifiers are hashed and session
// tokens masked before they reach log output.
package logging
