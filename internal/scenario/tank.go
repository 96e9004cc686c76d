package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/san-kum/levelctl/internal/actuator"
	"github.com/san-kum/levelctl/internal/control"
	"github.com/san-kum/levelctl/internal/dynamo"
	"github.com/san-kum/levelctl/internal/integrators"
	"github.com/san-kum/levelctl/internal/plant"
)

// Tank is a simulated rig: it takes pump commands like the real drive and
// integrates the level with RK4 whenever it is advanced.
type Tank struct {
	mu      sync.Mutex
	model   *plant.Tank
	integ   dynamo.Integrator
	level   dynamo.State
	command float64
	t       float64
}

var _ actuator.Pump = (*Tank)(nil)

func NewTank(model *plant.Tank, initialLevel float64) *Tank {
	return &Tank{
		model: model,
		integ: integrators.NewRK4(),
		level: dynamo.State{model.Bound(initialLevel)},
	}
}

func (k *Tank) Write(command float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.command = control.Clamp(command)
	return nil
}

// Advance integrates dt seconds under the last command. The level is held
// inside the physical tank.
func (k *Tank) Advance(dt float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := k.integ.Step(k.model, k.level, dynamo.Control{k.command}, k.t, dt)
	if !next.IsValid() {
		return
	}
	next[0] = k.model.Bound(next[0])
	k.level = next
	k.t += dt
}

// Run advances the tank in real time until ctx is done.
func (k *Tank) Run(ctx context.Context, clk clock.Clock, step time.Duration) {
	ticker := clk.Ticker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Advance(step.Seconds())
		}
	}
}

func (k *Tank) Level() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.level[0]
}

func (k *Tank) Command() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.command
}

func (k *Tank) Height() float64 {
	return k.model.Height
}
