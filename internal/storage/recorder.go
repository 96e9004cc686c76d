package storage

import (
	"sync"

	"github.com/san-kum/levelctl/internal/engine"
)

// Recorder buffers ticks in memory until a run is saved. Zero value is
// ready to use.
type Recorder struct {
	mu      sync.Mutex
	samples []engine.Sample
	limit   int
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder keeps at most limit samples, dropping the oldest; limit <= 0
// keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) OnTick(s engine.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	if r.limit > 0 && len(r.samples) > r.limit {
		r.samples = r.samples[len(r.samples)-r.limit:]
	}
}

func (r *Recorder) Samples() []engine.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
}
