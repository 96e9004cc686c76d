// Package telemetry defines the wire topics of the level controller and
// publishes its per-tick measurements and status.
//
// Topic literals are part of the wire contract with the operator app and
// must not change.
package telemetry

// Topic is a publish/subscribe channel name.
type Topic string

// Consumed topics.
const (
	TopicGain         Topic = "gain"
	TopicObserverGain Topic = "observer-gain"
	TopicNx           Topic = "Nx"
	TopicNu           Topic = "Nu"
	TopicReference    Topic = "reference"
	TopicTerminate    Topic = "terminate"
)

// Produced topics.
const (
	TopicLevel           Topic = "level"
	TopicEstimate        Topic = "estimate"
	TopicVoltage         Topic = "voltage"
	TopicElapsed         Topic = "elapsed-time"
	TopicWiFiState       Topic = "wifi-state"
	TopicBrokerState     Topic = "broker-state"
	TopicExperimentState Topic = "experiment-state"
)

// StopPayload is the only terminate payload that takes effect.
const StopPayload = "STOP"

// Broker states.
const (
	BrokerConnected    = "Connected"
	BrokerDisconnected = "Disconnected"
)

// Consumed lists every topic the controller subscribes to.
func Consumed() []Topic {
	return []Topic{
		TopicGain,
		TopicObserverGain,
		TopicNx,
		TopicNu,
		TopicReference,
		TopicTerminate,
	}
}
