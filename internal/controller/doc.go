// Package controller serialises every device mutation through one owner
// goroutine.
//
// # Architecture
//
//	  HTTP handlers ─┐
//	  MQTT bridge  ──┼──▶ Queue (bounded) ──▶ Owner.Run ──▶ device.Registry
//	  Triggers     ──┘        ▲                   │    └──▶ hal.Actuator
//	                          │                   ▼
//	                     Client facade      Reply channel / Observers
//
// Producers wrap a Command in an Envelope and send it through the Queue.
// A send waits at most 100ms for space, then fails with ErrChannelFull.
// Request/reply commands carry a buffered reply channel; the owner answers
// with a non-blocking send, so a caller that timed out never stalls it.
// Fire-and-forget commands (what triggers send) carry none, and their
// failures are only logged.
//
// The owner applies pure transitions from the device package, drives the
// relay, and commits the new record only after the relay write succeeded.
// A failed relay write is fatal: Run returns an error wrapping
// ErrActuatorFault and the process shuts down.
//
// # Usage
//
//	queue := controller.NewQueue(32, 100*time.Millisecond)
//	owner := controller.NewOwner(registry, relays, queue)
//	go owner.Run(ctx)
//
//	client := controller.NewClient(queue, 2*time.Second).WithSource("api")
//	rec, err := client.Toggle(ctx, "FOGGER")
package controller
