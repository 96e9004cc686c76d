// Package actuator maps the 0-100 pump command onto a drive output.
package actuator

import (
	"sync"

	"github.com/san-kum/levelctl/internal/control"
)

// DefaultMaxDuty is the top of an 8-bit PWM range.
const DefaultMaxDuty = 255

// Pump accepts a command in [0, 100] and holds it until the next write.
type Pump interface {
	Write(command float64) error
}

// ToDuty maps a command onto [0, maxDuty]. The command is clamped and then
// truncated to a whole percent before scaling, which is what the 8-bit
// drive on the rig does.
func ToDuty(command float64, maxDuty int) int {
	pct := int(control.Clamp(command))
	return pct * maxDuty / 100
}

// Recorder is an in-memory pump. It backs the simulated tank and tests.
type Recorder struct {
	mu      sync.Mutex
	maxDuty int
	command float64
	duty    int
	writes  int
}

func NewRecorder(maxDuty int) *Recorder {
	if maxDuty <= 0 {
		maxDuty = DefaultMaxDuty
	}
	return &Recorder{maxDuty: maxDuty}
}

func (r *Recorder) Write(command float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.command = control.Clamp(command)
	r.duty = ToDuty(command, r.maxDuty)
	r.writes++
	return nil
}

// Command returns the last command written.
func (r *Recorder) Command() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.command
}

func (r *Recorder) Duty() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duty
}

func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
