package metrics

import (
	"math"

	"github.com/san-kum/levelctl/internal/engine"
)

// Tracking is the mean absolute error between reference and measured level.
type Tracking struct {
	sum     float64
	samples int
}

func NewTracking() *Tracking { return &Tracking{} }

func (t *Tracking) Name() string { return "tracking_error" }

func (t *Tracking) Observe(s engine.Sample) {
	t.sum += math.Abs(s.Reference - s.Level)
	t.samples++
}

func (t *Tracking) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return t.sum / float64(t.samples)
}

func (t *Tracking) Reset() {
	t.sum = 0
	t.samples = 0
}

// Estimation is the RMS gap between measurement and observer estimate.
type Estimation struct {
	sumSq   float64
	samples int
}

func NewEstimation() *Estimation { return &Estimation{} }

func (e *Estimation) Name() string { return "estimation_rms" }

func (e *Estimation) Observe(s engine.Sample) {
	d := s.Level - s.Estimate
	e.sumSq += d * d
	e.samples++
}

func (e *Estimation) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *Estimation) Reset() {
	e.sumSq = 0
	e.samples = 0
}

// Timeouts counts echo cycles that returned nothing.
type Timeouts struct {
	n int
}

func NewTimeouts() *Timeouts { return &Timeouts{} }

func (t *Timeouts) Name() string            { return "sensor_timeouts" }
func (t *Timeouts) Observe(s engine.Sample) { t.n += s.Timeouts }
func (t *Timeouts) Value() float64          { return float64(t.n) }
func (t *Timeouts) Reset()                  { t.n = 0 }
