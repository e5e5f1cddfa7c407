// Package mqtt provides MQTT client connectivity for SporeHut.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions that survive reconnects
//   - Last Will and Testament (LWT) for offline detection
//
// MQTT is optional. When enabled, the bridge package publishes retained
// device state and accepts remote commands:
//
//	sporehut/command/{device_id}   {"command":"toggle"}       → owner
//	sporehut/ack/{device_id}       {"ok":true,"state":"on"}  ← owner
//	sporehut/state/{device_id}     retained device record
//	sporehut/sensor/{sensor}       environment readings
//	sporehut/system/status         online/offline (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1, handler)
package mqtt
