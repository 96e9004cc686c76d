package metrics

import "github.com/san-kum/levelctl/internal/engine"

// ControlEffort is the mean pump command over the run.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s engine.Sample) {
	c.sum += s.Command
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of ticks whose command was clamped.
type Saturation struct {
	saturated int
	samples   int
}

func NewSaturation() *Saturation {
	return &Saturation{}
}

func (c *Saturation) Name() string { return "saturation" }

func (c *Saturation) Observe(s engine.Sample) {
	c.samples++
	if s.Saturated {
		c.saturated++
	}
}

func (c *Saturation) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.saturated) / float64(c.samples)
}

func (c *Saturation) Reset() {
	c.saturated = 0
	c.samples = 0
}
