// Package bridge connects the device owner to MQTT.
//
// Commands subscribes to sporehut/command/+ and forwards each message to
// the owner through a controller.Client with source "mqtt". The result is
// published on sporehut/ack/{device_id}.
//
// Publisher mirrors the system outward: retained device state on every
// change, sensor readings, and trigger firings. Its Observe, ObserveReading
// and Broadcast methods only enqueue; Run does the network I/O so a slow
// broker never stalls the owner or the trigger engine.
package bridge
