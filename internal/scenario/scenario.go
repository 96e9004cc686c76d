// Package scenario runs scripted experiments against a simulated tank.
//
// A scenario is a list of operator messages stamped with the time they are
// sent. The runner drives the real control engine on a mock clock, so a run
// is reproducible tick for tick.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/levelctl/internal/telemetry"
)

var ErrEmptyScenario = errors.New("scenario has no events")

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Duration    time.Duration `yaml:"duration"`
	Seed        int64         `yaml:"seed"`
	Events      []Event       `yaml:"events"`
}

// Event is one inbound message, delivered before the first tick at or
// after At.
type Event struct {
	At      time.Duration   `yaml:"at"`
	Topic   telemetry.Topic `yaml:"topic"`
	Payload string          `yaml:"payload"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = "scenario"
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Scenario) Validate() error {
	if len(s.Events) == 0 {
		return ErrEmptyScenario
	}
	if s.Duration <= 0 {
		return fmt.Errorf("scenario %s: duration must be positive, got %s", s.Name, s.Duration)
	}
	for i, ev := range s.Events {
		if ev.At < 0 {
			return fmt.Errorf("scenario %s: event %d at negative time %s", s.Name, i, ev.At)
		}
		if ev.Topic == "" {
			return fmt.Errorf("scenario %s: event %d has no topic", s.Name, i)
		}
	}
	return nil
}

// sorted returns the events in delivery order; ties keep file order.
func (s *Scenario) sorted() []Event {
	evs := append([]Event(nil), s.Events...)
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].At < evs[j].At })
	return evs
}

// StepResponse is the built-in scenario: fill to 10 cm, step to 14 cm, then
// stop the experiment and let the tank drain.
func StepResponse() *Scenario {
	return &Scenario{
		Name:        "step",
		Description: "setpoint step 10 cm -> 14 cm, then terminate",
		Duration:    40 * time.Second,
		Seed:        1,
		Events: []Event{
			{At: 0, Topic: telemetry.TopicReference, Payload: "10.0"},
			{At: 20 * time.Second, Topic: telemetry.TopicReference, Payload: "14.0"},
			{At: 35 * time.Second, Topic: telemetry.TopicTerminate, Payload: telemetry.StopPayload},
		},
	}
}
