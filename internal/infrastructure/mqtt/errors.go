package mqtt

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrNotConnected means the broker link is down. Publishes are not
	// queued while disconnected.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed wraps the reason the first connect failed.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps encode, size, timeout and broker errors.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed covers both subscribe and unsubscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscription failed")

	// ErrInvalidQoS rejects QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects empty topics.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)

// checkRequest validates the topic and QoS of a publish or subscribe.
func checkRequest(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}
