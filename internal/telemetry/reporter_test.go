package telemetry

import (
	"math"
	"testing"
)

type message struct {
	topic   Topic
	payload string
}

type capture struct {
	msgs []message
}

func (c *capture) Publish(topic Topic, payload string) {
	c.msgs = append(c.msgs, message{topic, payload})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{12, "12.00"},
		{3.14159, "3.14"},
		{2.675, "2.67"},
		{-0.5, "-0.50"},
		{507.616, "507.62"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Format(math.NaN()); got != "NaN" {
		t.Errorf("Format(NaN) = %q", got)
	}
}

func TestReporterTick(t *testing.T) {
	c := &capture{}
	r := NewReporter(c, DefaultFullScaleVolts)

	r.Tick(4.5, 1.234, 100, 0.01)

	want := []message{
		{TopicLevel, "4.50"},
		{TopicEstimate, "1.23"},
		{TopicVoltage, "12.00"},
		{TopicElapsed, "0.01"},
	}
	if len(c.msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(c.msgs))
	}
	for i := range want {
		if c.msgs[i] != want[i] {
			t.Errorf("message %d: got %+v, want %+v", i, c.msgs[i], want[i])
		}
	}
}

func TestReporterVoltageDefaultsFullScale(t *testing.T) {
	r := NewReporter(&capture{}, 0)
	if v := r.Voltage(50); v != 6 {
		t.Errorf("expected 6V at half command, got %f", v)
	}
}

func TestConsumedTopics(t *testing.T) {
	got := Consumed()
	if len(got) != 6 {
		t.Fatalf("expected 6 consumed topics, got %d", len(got))
	}
	seen := map[Topic]bool{}
	for _, tp := range got {
		seen[tp] = true
	}
	for _, tp := range []Topic{"gain", "observer-gain", "Nx", "Nu", "reference", "terminate"} {
		if !seen[tp] {
			t.Errorf("missing consumed topic %q", tp)
		}
	}
}
