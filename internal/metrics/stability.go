package metrics

import (
	"math"

	"github.com/san-kum/levelctl/internal/engine"
)

// Stability is the fraction of ticks with the measured level inside a band
// around the reference.
type Stability struct {
	name    string
	band    float64
	outside int
	samples int
}

func NewStability(band float64) *Stability {
	return &Stability{
		name: "in_band",
		band: band,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sample engine.Sample) {
	s.samples++
	if math.Abs(sample.Level-sample.Reference) > s.band {
		s.outside++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.outside)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.outside = 0
	s.samples = 0
}
