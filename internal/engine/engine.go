package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/levelctl/internal/actuator"
	"github.com/san-kum/levelctl/internal/control"
	"github.com/san-kum/levelctl/internal/dynamo"
	"github.com/san-kum/levelctl/internal/lifecycle"
	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/plant"
	"github.com/san-kum/levelctl/internal/sensor"
	"github.com/san-kum/levelctl/internal/telemetry"
)

const DefaultTick = 10 * time.Millisecond

type Config struct {
	Tick                 time.Duration
	FullScaleVolts       float64
	ResetEstimateOnStart bool
}

func DefaultConfig() Config {
	return Config{
		Tick:           DefaultTick,
		FullScaleVolts: telemetry.DefaultFullScaleVolts,
	}
}

// LevelSensor is the measurement side of the loop; *sensor.Ranger
// satisfies it.
type LevelSensor interface {
	Read(ctx context.Context) sensor.Reading
}

// Deps are the collaborators an engine drives. Sensor and Pump are
// required; everything else defaults when nil.
type Deps struct {
	Clock     clock.Clock
	Sensor    LevelSensor
	Pump      actuator.Pump
	Publisher telemetry.Publisher
	Params    *params.Store
	Lifecycle *lifecycle.Machine
	Model     dynamo.System
	Logger    *zap.Logger
}

// Sample is the record of one executed tick.
type Sample struct {
	Step       int
	Time       float64 // seconds since the experiment started
	Level      float64
	Estimate   float64
	Command    float64
	RawCommand float64
	Voltage    float64
	Reference  float64
	Saturated  bool
	Timeouts   int
}

// Observer receives every executed tick. It runs inside the tick and must
// not call back into the engine.
type Observer interface {
	OnTick(s Sample)
}

type Engine struct {
	mu sync.Mutex

	cfg       Config
	clock     clock.Clock
	sensor    LevelSensor
	pump      actuator.Pump
	params    *params.Store
	machine   *lifecycle.Machine
	reporter  *telemetry.Reporter
	law       control.StateFeedback
	estimator *control.Observer
	handlers  map[telemetry.Topic]handler
	observers []Observer
	logger    *zap.Logger
	step      int
}

func New(cfg Config, d Deps) *Engine {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Params == nil {
		d.Params = params.NewDefaultStore()
	}
	if d.Lifecycle == nil {
		d.Lifecycle = lifecycle.New(d.Clock)
	}
	if d.Model == nil {
		d.Model = plant.NewTank(plant.DefaultA, plant.DefaultB)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = telemetry.Discard
	}

	e := &Engine{
		cfg:       cfg,
		clock:     d.Clock,
		sensor:    d.Sensor,
		pump:      d.Pump,
		params:    d.Params,
		machine:   d.Lifecycle,
		reporter:  telemetry.NewReporter(d.Publisher, cfg.FullScaleVolts),
		estimator: control.NewObserver(d.Model),
		logger:    d.Logger.Named("engine"),
	}
	e.handlers = e.dispatchTable()
	e.machine.OnTransition(e.onTransition)
	return e
}

func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Announce publishes the current experiment state. Call once after the
// transport is up.
func (e *Engine) Announce() {
	e.reporter.ExperimentState(e.machine.State().String())
}

// Tick runs one control step. It returns false without touching the sensor,
// pump or observer when the experiment is not Running.
func (e *Engine) Tick(ctx context.Context) (Sample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.Running() {
		return Sample{}, false
	}

	reading := e.sensor.Read(ctx)
	snap := e.params.Snapshot()

	out := e.law.Compute(snap.ControllerParameters, snap.Rss, e.estimator.Estimate())
	estimate := e.estimator.Update(reading.Level, out.Command, snap.Ke, e.cfg.Tick.Seconds())

	if err := e.pump.Write(out.Command); err != nil {
		e.logger.Warn("pump write failed", zap.Float64("command", out.Command), zap.Error(err))
	}

	elapsed := e.machine.Elapsed()
	e.reporter.Tick(reading.Level, estimate, out.Command, elapsed)

	s := Sample{
		Step:       e.step,
		Time:       elapsed,
		Level:      reading.Level,
		Estimate:   estimate,
		Command:    out.Command,
		RawCommand: out.Raw,
		Voltage:    e.reporter.Voltage(out.Command),
		Reference:  snap.Rss,
		Saturated:  out.Saturated(),
		Timeouts:   reading.Timeouts,
	}
	e.step++
	for _, o := range e.observers {
		o.OnTick(s)
	}
	return s, true
}

// Run ticks at the configured period until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := e.clock.Ticker(e.cfg.Tick)
	defer ticker.Stop()

	e.logger.Info("control loop started", zap.Duration("tick", e.cfg.Tick))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("control loop stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Stop ends the experiment as a terminate message would.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.machine.Stop()
}

func (e *Engine) Estimate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimator.Estimate()
}

func (e *Engine) State() lifecycle.State {
	return e.machine.State()
}

func (e *Engine) Params() *params.Store {
	return e.params
}

// onTransition runs synchronously inside Fire, which is always called with
// e.mu held.
func (e *Engine) onTransition(from, to lifecycle.State) {
	switch to {
	case lifecycle.Running:
		if e.cfg.ResetEstimateOnStart {
			e.estimator.Set(0)
		}
	case lifecycle.Stopped:
		if err := e.pump.Write(0); err != nil {
			e.logger.Error("failed to stop pump", zap.Error(err))
		}
	}
	e.logger.Info("experiment state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	e.reporter.ExperimentState(to.String())
}
