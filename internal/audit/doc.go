// Package audit records every processed device command in SQLite.
//
// The Recorder is a controller.Observer; wrap it in a
// controller.AsyncObserver so database latency never stalls the device
// owner. Only the command trail is stored. Device state is rebuilt from
// configuration on every start.
//
// The Pruner removes entries older than database.audit_retention_days.
package audit
