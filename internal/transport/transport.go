// Package transport defines the publish/subscribe contract the controller
// needs from its message channel.
package transport

import "github.com/san-kum/levelctl/internal/telemetry"

// Handler receives one inbound message.
type Handler func(topic telemetry.Topic, payload string)

// Bus is a bidirectional message channel.
type Bus interface {
	telemetry.Publisher
	Subscribe(topics []telemetry.Topic, h Handler) error
	Close()
}
