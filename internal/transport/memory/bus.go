// Package memory is an in-process publish/subscribe bus. It backs offline
// scenarios, the live monitor and tests.
package memory

import (
	"sync"

	"github.com/san-kum/levelctl/internal/telemetry"
	"github.com/san-kum/levelctl/internal/transport"
)

type Message struct {
	Topic   telemetry.Topic
	Payload string
}

// Bus delivers synchronously on the publisher's goroutine. Handlers run
// without the bus lock held, so they may publish.
type Bus struct {
	mu       sync.Mutex
	handlers map[telemetry.Topic][]transport.Handler
	history  []Message
	keep     int
	closed   bool
}

var _ transport.Bus = (*Bus)(nil)

// New returns a bus that remembers at most keep messages; zero keeps none.
func New(keep int) *Bus {
	return &Bus{
		handlers: make(map[telemetry.Topic][]transport.Handler),
		keep:     keep,
	}
}

func (b *Bus) Publish(topic telemetry.Topic, payload string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.keep > 0 {
		b.history = append(b.history, Message{Topic: topic, Payload: payload})
		if over := len(b.history) - b.keep; over > 0 {
			b.history = b.history[over:]
		}
	}
	hs := append([]transport.Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range hs {
		h(topic, payload)
	}
}

func (b *Bus) Subscribe(topics []telemetry.Topic, h transport.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		b.handlers[t] = append(b.handlers[t], h)
	}
	return nil
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[telemetry.Topic][]transport.Handler)
}

// History returns the remembered messages, oldest first.
func (b *Bus) History() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.history...)
}

// Payloads returns the remembered payloads for one topic.
func (b *Bus) Payloads(topic telemetry.Topic) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.history {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Last returns the most recent payload on a topic.
func (b *Bus) Last(topic telemetry.Topic) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.history) - 1; i >= 0; i-- {
		if b.history[i].Topic == topic {
			return b.history[i].Payload, true
		}
	}
	return "", false
}

func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
