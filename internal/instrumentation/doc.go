// Package instrumentation provides OpenTelemetry-based observability for the
// webhook adapter: metrics (Prometheus, OTLP, or stdout exporters), optional
// tracing, and audit logging of tool invocations.
//
// The Provider owns the meter and tracer providers and is constructed once at
// process start. All recording helpers are nil-safe so call sites never need
// to guard on whether instrumentation is enabled.
package instrumentation
