// Package metrics scores a control run from its tick samples.
package metrics

import "github.com/san-kum/levelctl/internal/engine"

type Metric interface {
	Name() string
	Observe(s engine.Sample)
	Value() float64
	Reset()
}

// Set fans tick samples out to several metrics. It implements
// engine.Observer.
type Set struct {
	metrics []Metric
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

// Default returns the metrics every stored run carries.
func Default(band float64) *Set {
	return NewSet(
		NewControlEffort(),
		NewSaturation(),
		NewTracking(),
		NewEstimation(),
		NewStability(band),
		NewTimeouts(),
	)
}

func (s *Set) OnTick(sample engine.Sample) {
	for _, m := range s.metrics {
		m.Observe(sample)
	}
}

func (s *Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Set) Reset() {
	for _, m := range s.metrics {
		m.Reset()
	}
}
