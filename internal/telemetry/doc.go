// Package telemetry fans environment readings, device changes and trigger
// firings out to the optional observability sinks.
//
// Sensor decorates a hal.Sensor: every successful read is recorded as
// Prometheus gauges and handed to the registered ReadingObservers before
// it is returned to the caller. Influx turns readings, device events and
// "trigger.fired" broadcasts into InfluxDB points. MultiHub lets the
// trigger engine broadcast to several sinks at once.
//
// Nothing here feeds back into control decisions.
package telemetry
