// Package device provides the device registry for SporeHut Core.
//
// A device is a relay-driven load (the fogger, its fan) identified by a
// string id and wired to one GPIO pin. The registry is a plain map from id
// to Record with no internal locking: it belongs to the controller's Owner
// goroutine, which is the only code that reads or writes it. Everyone else
// sees devices through snapshots returned by the owner.
//
// State changes are pure functions on Record values:
//
//	next := rec.Toggled()  // on -> off, off -> on
//	next := rec.Enabled()  // always on
//	next := rec.Disabled() // always off
//
// The owner computes the next record, drives the relay, and only then
// stores the record with Registry.Put, so a failed relay write never leaves
// a half-applied state behind.
package device
