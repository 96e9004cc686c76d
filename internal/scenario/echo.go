package scenario

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/san-kum/levelctl/internal/sensor"
)

// Echo fakes the ultrasonic transducer above a simulated tank. Pulse widths
// follow the air gap plus gaussian noise; a fraction of pulses is dropped.
type Echo struct {
	tank        *Tank
	microsPerCm float64
	noiseCm     float64
	dropout     float64

	mu  sync.Mutex
	rng *rand.Rand
}

var _ sensor.Echo = (*Echo)(nil)

func NewEcho(tank *Tank, microsPerCm, noiseCm, dropout float64, seed int64) *Echo {
	if microsPerCm <= 0 {
		microsPerCm = sensor.DefaultMicrosPerCm
	}
	return &Echo{
		tank:        tank,
		microsPerCm: microsPerCm,
		noiseCm:     noiseCm,
		dropout:     dropout,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (e *Echo) Pulse(ctx context.Context, timeout time.Duration) time.Duration {
	if ctx.Err() != nil {
		return 0
	}
	gap := e.tank.Height() - e.tank.Level()

	e.mu.Lock()
	drop := e.dropout > 0 && e.rng.Float64() < e.dropout
	if e.noiseCm > 0 {
		gap += e.rng.NormFloat64() * e.noiseCm
	}
	e.mu.Unlock()

	if drop || gap <= 0 {
		return 0
	}
	width := time.Duration(gap * e.microsPerCm * float64(time.Microsecond))
	if timeout > 0 && width > timeout {
		return 0
	}
	return width
}
