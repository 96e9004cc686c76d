// Package sensor turns pulse-echo round-trip times into a filtered liquid
// level.
//
// The transducer sits above the tank looking down. Each reading averages a
// few echo cycles into a distance and reports TotalHeight minus that
// distance, i.e. the fill level.
package sensor

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultSamples     = 5
	DefaultTimeout     = 25 * time.Millisecond
	DefaultSettle      = 2 * time.Millisecond
	DefaultMicrosPerCm = 58.0
	DefaultTotalHeight = 20.0
)

// Echo performs one trigger/echo cycle. It returns the echo pulse width, or
// zero when no echo arrived within timeout.
type Echo interface {
	Pulse(ctx context.Context, timeout time.Duration) time.Duration
}

// EchoFunc adapts a function to Echo.
type EchoFunc func(ctx context.Context, timeout time.Duration) time.Duration

func (f EchoFunc) Pulse(ctx context.Context, timeout time.Duration) time.Duration {
	return f(ctx, timeout)
}

type Config struct {
	Samples     int
	Timeout     time.Duration
	Settle      time.Duration
	MicrosPerCm float64
	TotalHeight float64
}

func DefaultConfig() Config {
	return Config{
		Samples:     DefaultSamples,
		Timeout:     DefaultTimeout,
		Settle:      DefaultSettle,
		MicrosPerCm: DefaultMicrosPerCm,
		TotalHeight: DefaultTotalHeight,
	}
}

// Reading is one filtered measurement.
type Reading struct {
	Level    float64
	Distance float64
	// Timeouts counts cycles that saw no echo; each contributed 0 cm.
	Timeouts int
}

type Ranger struct {
	echo  Echo
	cfg   Config
	clock clock.Clock
}

func New(echo Echo, cfg Config, clk clock.Clock) *Ranger {
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultSamples
	}
	if cfg.MicrosPerCm <= 0 {
		cfg.MicrosPerCm = DefaultMicrosPerCm
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Ranger{echo: echo, cfg: cfg, clock: clk}
}

// Distance converts an echo pulse width to centimetres.
func Distance(echo time.Duration, microsPerCm float64) float64 {
	return float64(echo.Microseconds()) / microsPerCm
}

// Measure returns the fill level. It never fails: missed echoes and a
// cancelled context both bias the average toward zero distance.
func (r *Ranger) Measure(ctx context.Context) float64 {
	return r.Read(ctx).Level
}

func (r *Ranger) Read(ctx context.Context) Reading {
	var sum float64
	var timeouts int
	for i := 0; i < r.cfg.Samples; i++ {
		if ctx.Err() != nil {
			timeouts += r.cfg.Samples - i
			break
		}
		d := r.echo.Pulse(ctx, r.cfg.Timeout)
		if d <= 0 {
			timeouts++
		} else {
			sum += Distance(d, r.cfg.MicrosPerCm)
		}
		if r.cfg.Settle > 0 && i < r.cfg.Samples-1 {
			r.clock.Sleep(r.cfg.Settle)
		}
	}
	dist := sum / float64(r.cfg.Samples)
	return Reading{
		Level:    r.cfg.TotalHeight - dist,
		Distance: dist,
		Timeouts: timeouts,
	}
}
