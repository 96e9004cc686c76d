package scenario

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/levelctl/internal/config"
	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/lifecycle"
	"github.com/san-kum/levelctl/internal/metrics"
	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/plant"
	"github.com/san-kum/levelctl/internal/sensor"
	"github.com/san-kum/levelctl/internal/storage"
	"github.com/san-kum/levelctl/internal/telemetry"
	"github.com/san-kum/levelctl/internal/transport/memory"
)

// TrackingBand is the distance from the setpoint, in cm, that counts as
// settled for the in_band metric.
const TrackingBand = 0.5

const busHistory = 1 << 16

// Rig is a simulated tank together with the ranger looking at it.
type Rig struct {
	Tank   *Tank
	Echo   *Echo
	Sensor *sensor.Ranger
}

// NewRig builds the plant from cfg. The simulated tank uses b scaled by
// plant.inflow_scale while the engine keeps the nominal model.
func NewRig(cfg *config.Config, clk clock.Clock, seed int64) *Rig {
	model := plant.NewTank(cfg.Plant.A, cfg.Plant.B*cfg.Plant.InflowScale)
	model.Height = cfg.Plant.TotalHeight
	tank := NewTank(model, cfg.Plant.InitialLevel)

	echo := NewEcho(tank, cfg.Sensor.MicrosPerCm, cfg.Sensor.NoiseCm, cfg.Sensor.Dropout, seed)
	rc := cfg.RangerConfig()
	rc.Settle = 0
	return &Rig{Tank: tank, Echo: echo, Sensor: sensor.New(echo, rc, clk)}
}

type Result struct {
	Name        string
	Samples     []engine.Sample
	Metrics     map[string]float64
	Final       lifecycle.State
	Level       float64
	Estimate    float64
	// Equilibrium is the level the nominal model settles at under the
	// final pump command.
	Equilibrium float64
	Messages    []memory.Message
}

// Run plays sc against a simulated rig on a mock clock. Events due at or
// before a tick are delivered over an in-memory bus just before it.
func Run(ctx context.Context, cfg *config.Config, sc *Scenario, logger *zap.Logger) (*Result, error) {
	return run(ctx, cfg, cfg.ParamStore(), sc, logger)
}

func run(ctx context.Context, cfg *config.Config, store *params.Store, sc *Scenario, logger *zap.Logger) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scenario").With(zap.String("scenario", sc.Name))

	clk := clock.NewMock()
	rig := NewRig(cfg, clk, sc.Seed)
	bus := memory.New(busHistory)
	defer bus.Close()

	eng := engine.New(cfg.EngineConfig(), engine.Deps{
		Clock:     clk,
		Sensor:    rig.Sensor,
		Pump:      rig.Tank,
		Publisher: bus,
		Params:    store,
		Model:     cfg.Model(),
		Logger:    logger,
	})
	set := metrics.Default(TrackingBand)
	rec := storage.NewRecorder(0)
	eng.AddObserver(set)
	eng.AddObserver(rec)
	if err := bus.Subscribe(telemetry.Consumed(), eng.Handle); err != nil {
		return nil, err
	}
	eng.Announce()

	tick := cfg.Loop.Tick
	steps := int(sc.Duration / tick)
	events := sc.sorted()
	next := 0
	logger.Info("scenario started", zap.Int("ticks", steps), zap.Int("events", len(events)))

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now := time.Duration(i) * tick
		for next < len(events) && events[next].At <= now {
			ev := events[next]
			logger.Debug("event", zap.Duration("at", ev.At), zap.String("topic", string(ev.Topic)), zap.String("payload", ev.Payload))
			bus.Publish(ev.Topic, ev.Payload)
			next++
		}
		clk.Add(tick)
		rig.Tank.Advance(tick.Seconds())
		eng.Tick(ctx)
	}

	res := &Result{
		Name:        sc.Name,
		Samples:     rec.Samples(),
		Metrics:     set.Values(),
		Final:       eng.State(),
		Level:       rig.Tank.Level(),
		Estimate:    eng.Estimate(),
		Equilibrium: cfg.Model().SteadyState(rig.Tank.Command()),
		Messages:    bus.History(),
	}
	logger.Info("scenario finished",
		zap.Stringer("state", res.Final),
		zap.Int("samples", len(res.Samples)),
		zap.Float64("level", res.Level))
	return res, nil
}
