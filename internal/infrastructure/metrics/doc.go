// Package metrics exports SporeHut Core's Prometheus collectors.
//
// A single Metrics value is created at startup and handed to the
// controller, the trigger engine and the telemetry recorder. The API
// server mounts Handler at /metrics.
package metrics
