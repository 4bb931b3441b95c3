package mqtt

import (
	"fmt"
)

// maxPayloadSize rejects runaway payloads before they reach the
// broker. 1MB is far above anything this service produces (a discovery
// config is a few hundred bytes) and below common broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to accept
// it, up to the publish timeout. Retained messages replace the broker's
// stored copy for the topic; publishing an empty retained payload
// clears it, which is how departed sensors drop out of Home Assistant.
//
// Returns ErrInvalidTopic, ErrInvalidQoS or ErrNotConnected for bad
// input or a down link, and wraps everything else in ErrPublishFailed.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
