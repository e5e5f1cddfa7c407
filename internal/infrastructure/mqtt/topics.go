package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every SporeHut topic.
const TopicPrefix = "sporehut"

// Topics provides builders for SporeHut MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.State("FOGGER") // "sporehut/state/FOGGER"
type Topics struct{}

// Command returns the topic remote clients publish device commands to.
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Ack returns the topic command results are published to.
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, deviceID)
}

// State returns the retained device state topic.
func (Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// Sensor returns the topic environment readings are published to.
func (Topics) Sensor(name string) string {
	return fmt.Sprintf("%s/sensor/%s", TopicPrefix, name)
}

// TriggerFired returns the topic automation firings are published to.
func (Topics) TriggerFired(triggerID string) string {
	return fmt.Sprintf("%s/trigger/%s", TopicPrefix, triggerID)
}

// SystemStatus returns the retained online/offline topic (also the LWT).
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllCommands returns the wildcard for every device command topic.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// AllStates returns the wildcard for every device state topic.
func (Topics) AllStates() string {
	return TopicPrefix + "/state/+"
}

// DeviceFromTopic extracts the device ID from a command, ack or state topic.
// It returns false for topics outside those three families.
func DeviceFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[2] == "" {
		return "", false
	}
	switch parts[1] {
	case "command", "ack", "state":
		return parts[2], true
	default:
		return "", false
	}
}
