package lifecycle

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

type step struct {
	from, to State
}

func record(m *Machine) *[]step {
	var seen []step
	m.OnTransition(func(from, to State) { seen = append(seen, step{from, to}) })
	return &seen
}

func TestInitialState(t *testing.T) {
	m := New(clock.NewMock())
	if m.State() != Idle {
		t.Errorf("expected Idle, got %s", m.State())
	}
	if m.Running() {
		t.Error("machine should not start running")
	}
}

func TestStartOncePerIdlePeriod(t *testing.T) {
	mock := clock.NewMock()
	m := New(mock)
	seen := record(m)

	if !m.Start() {
		t.Fatal("first reference should start the experiment")
	}
	started := m.StartedAt()

	mock.Add(3 * time.Second)
	if m.Start() {
		t.Error("reference while running must not re-enter Running")
	}
	if !m.StartedAt().Equal(started) {
		t.Error("start time must not move while running")
	}
	if got := m.Elapsed(); got != 3 {
		t.Errorf("expected 3s elapsed, got %f", got)
	}
	if len(*seen) != 1 {
		t.Errorf("expected one transition, got %d", len(*seen))
	}
}

func TestStopFromEveryState(t *testing.T) {
	for _, from := range []State{Idle, Running, Stopped} {
		t.Run(from.String(), func(t *testing.T) {
			m := New(clock.NewMock())
			switch from {
			case Running:
				m.Start()
			case Stopped:
				m.Stop()
			}
			seen := record(m)

			m.Stop()

			if m.State() != Stopped {
				t.Errorf("expected Stopped, got %s", m.State())
			}
			if len(*seen) != 1 || (*seen)[0] != (step{from, Stopped}) {
				t.Errorf("unexpected transitions %+v", *seen)
			}
		})
	}
}

func TestRestartFromStopped(t *testing.T) {
	mock := clock.NewMock()
	m := New(mock)
	seen := record(m)

	m.Start()
	mock.Add(time.Second)
	m.Stop()
	mock.Add(time.Second)
	m.Start()

	want := []step{{Idle, Running}, {Running, Stopped}, {Stopped, Running}}
	if len(*seen) != len(want) {
		t.Fatalf("expected %d transitions, got %+v", len(want), *seen)
	}
	for i := range want {
		if (*seen)[i] != want[i] {
			t.Errorf("transition %d: got %+v, want %+v", i, (*seen)[i], want[i])
		}
	}
	if m.Elapsed() != 0 {
		t.Errorf("elapsed should reset on re-entry, got %f", m.Elapsed())
	}
}

func TestStateStrings(t *testing.T) {
	if Idle.String() != "Idle" || Running.String() != "Running" || Stopped.String() != "Stopped" {
		t.Error("state names are part of the wire contract")
	}
}
