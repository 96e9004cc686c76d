package telemetry

import "strconv"

// DefaultFullScaleVolts is the pump supply voltage at 100% command.
const DefaultFullScaleVolts = 12.0

// Publisher sends one payload on one topic. Delivery is best effort; an
// implementation must not block the caller for long.
type Publisher interface {
	Publish(topic Topic, payload string)
}

// Format renders a numeric payload with fixed two-decimal precision.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Reporter publishes the controller's outbound topics.
type Reporter struct {
	pub       Publisher
	fullScale float64
}

func NewReporter(pub Publisher, fullScaleVolts float64) *Reporter {
	if fullScaleVolts <= 0 {
		fullScaleVolts = DefaultFullScaleVolts
	}
	return &Reporter{pub: pub, fullScale: fullScaleVolts}
}

// Voltage converts a 0-100 command to the equivalent pump voltage.
func (r *Reporter) Voltage(command float64) float64 {
	return command * (r.fullScale / 100.0)
}

// Tick publishes the per-tick set: level, estimate, voltage, elapsed time.
func (r *Reporter) Tick(level, estimate, command, elapsedSeconds float64) {
	r.pub.Publish(TopicLevel, Format(level))
	r.pub.Publish(TopicEstimate, Format(estimate))
	r.pub.Publish(TopicVoltage, Format(r.Voltage(command)))
	r.pub.Publish(TopicElapsed, Format(elapsedSeconds))
}

func (r *Reporter) ExperimentState(state string) {
	r.pub.Publish(TopicExperimentState, state)
}

func (r *Reporter) Address(addr string) {
	r.pub.Publish(TopicWiFiState, addr)
}

func (r *Reporter) BrokerState(state string) {
	r.pub.Publish(TopicBrokerState, state)
}

type discard struct{}

func (discard) Publish(Topic, string) {}

// Discard drops everything published to it.
var Discard Publisher = discard{}
