// Package lifecycle is the experiment state machine that gates whether the
// control law runs.
//
//	Idle ──reference──▶ Running ──stop──▶ Stopped
//	                      ▲                  │
//	                      └────reference─────┘
//
// Stop is accepted from every state. A reference while Running only updates
// the setpoint; it does not restart the experiment clock.
package lifecycle

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type Event int

const (
	EventReference Event = iota
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventReference:
		return "reference"
	case EventStop:
		return "stop"
	default:
		return "unknown"
	}
}

// transition is one row of the table. enter marks rows that run the target
// state's entry action and notify listeners.
type transition struct {
	to    State
	enter bool
}

var table = map[State]map[Event]transition{
	Idle: {
		EventReference: {to: Running, enter: true},
		EventStop:      {to: Stopped, enter: true},
	},
	Running: {
		EventReference: {to: Running, enter: false},
		EventStop:      {to: Stopped, enter: true},
	},
	Stopped: {
		EventReference: {to: Running, enter: true},
		EventStop:      {to: Stopped, enter: true},
	},
}

// Listener observes entered states. It runs after the machine's lock is
// released.
type Listener func(from, to State)

type Machine struct {
	mu        sync.Mutex
	clock     clock.Clock
	state     State
	startedAt time.Time
	listeners []Listener
}

func New(clk clock.Clock) *Machine {
	if clk == nil {
		clk = clock.New()
	}
	return &Machine{clock: clk, state: Idle}
}

func (m *Machine) OnTransition(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Fire applies an event and reports whether a state was entered.
func (m *Machine) Fire(ev Event) (State, bool) {
	m.mu.Lock()
	from := m.state
	tr, ok := table[from][ev]
	if !ok || !tr.enter {
		m.mu.Unlock()
		return from, false
	}
	m.state = tr.to
	if tr.to == Running {
		m.startedAt = m.clock.Now()
	}
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range ls {
		l(from, tr.to)
	}
	return tr.to, true
}

// Start enters Running unless already there.
func (m *Machine) Start() bool {
	_, entered := m.Fire(EventReference)
	return entered
}

func (m *Machine) Stop() {
	m.Fire(EventStop)
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Running() bool {
	return m.State() == Running
}

// StartedAt is the entry time of the current or most recent run.
func (m *Machine) StartedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

// Elapsed returns seconds since the most recent entry into Running.
func (m *Machine) Elapsed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Since(m.startedAt).Seconds()
}
