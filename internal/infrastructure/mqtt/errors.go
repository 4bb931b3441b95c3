package mqtt

import "errors"

// Sentinel errors for broker operations, matched with errors.Is.
// Failures from paho are wrapped with one of these so callers never
// depend on paho's error strings.
var (
	// ErrNotConnected rejects publishes and subscribes while the broker
	// link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed initial connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps publish failures, including oversize payloads.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps subscribe failures, including a nil handler.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps unsubscribe failures.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS reports a QoS outside 0-2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic reports an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
