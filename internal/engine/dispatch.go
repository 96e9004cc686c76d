package engine

import (
	"go.uber.org/zap"

	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/telemetry"
)

type handler func(payload string)

func (e *Engine) dispatchTable() map[telemetry.Topic]handler {
	return map[telemetry.Topic]handler{
		telemetry.TopicGain:         e.setter("K", e.params.SetK),
		telemetry.TopicObserverGain: e.setter("Ke", e.params.SetKe),
		telemetry.TopicNx:           e.setter("Nx", e.params.SetNx),
		telemetry.TopicNu:           e.setter("Nu", e.params.SetNu),
		telemetry.TopicReference:    e.onReference,
		telemetry.TopicTerminate:    e.onTerminate,
	}
}

// Handle applies one inbound message. It has the transport.Handler shape.
func (e *Engine) Handle(topic telemetry.Topic, payload string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.handlers[topic]
	if !ok {
		e.logger.Debug("ignoring message on unknown topic", zap.String("topic", string(topic)))
		return
	}
	h(payload)
}

// OnMessage is Handle for untyped topic names.
func (e *Engine) OnMessage(topic, payload string) {
	e.Handle(telemetry.Topic(topic), payload)
}

func (e *Engine) setter(name string, set func(float64)) handler {
	return func(payload string) {
		v := params.ParseReal(payload)
		set(v)
		e.logger.Info("parameter updated", zap.String("param", name), zap.Float64("value", v), zap.String("payload", payload))
	}
}

func (e *Engine) onReference(payload string) {
	v := params.ParseReal(payload)
	e.params.SetReference(v)
	e.logger.Info("reference updated", zap.Float64("rss", v))
	e.machine.Start()
}

func (e *Engine) onTerminate(payload string) {
	if payload != telemetry.StopPayload {
		e.logger.Debug("ignoring terminate without stop literal", zap.String("payload", payload))
		return
	}
	e.machine.Stop()
}
