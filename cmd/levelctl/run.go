package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/levelctl/internal/actuator"
	"github.com/san-kum/levelctl/internal/config"
	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/hardware"
	"github.com/san-kum/levelctl/internal/logging"
	"github.com/san-kum/levelctl/internal/metrics"
	"github.com/san-kum/levelctl/internal/scenario"
	"github.com/san-kum/levelctl/internal/sensor"
	"github.com/san-kum/levelctl/internal/storage"
	"github.com/san-kum/levelctl/internal/telemetry"
	"github.com/san-kum/levelctl/internal/transport/memory"
	"github.com/san-kum/levelctl/internal/transport/mqtt"
	"github.com/san-kum/levelctl/internal/viz"
)

const (
	backendHardware = "hardware"
	backendSim      = "sim"
)

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	rangeSensor, pump, err := openPlant(ctx, cfg, clk)
	if err != nil {
		return err
	}
	// Whatever happens below, the pump is left off.
	defer func() {
		if err := pump.Write(0); err != nil {
			logger.Error("failed to stop pump on exit", zap.Error(err))
		}
	}()

	bus := mqtt.New(cfg.MQTTOptions(), logger)
	eng := engine.New(cfg.EngineConfig(), engine.Deps{
		Clock:     clk,
		Sensor:    rangeSensor,
		Pump:      pump,
		Publisher: bus,
		Params:    cfg.ParamStore(),
		Model:     cfg.Model(),
		Logger:    logger,
	})

	var rec *storage.Recorder
	var set *metrics.Set
	if record {
		rec = storage.NewRecorder(0)
		set = metrics.Default(scenario.TrackingBand)
		eng.AddObserver(rec)
		eng.AddObserver(set)
	}

	if err := bus.Subscribe(telemetry.Consumed(), eng.Handle); err != nil {
		return err
	}
	if err := bus.Connect(ctx); err != nil {
		return err
	}
	defer bus.Close()

	telemetry.NewReporter(bus, cfg.Actuator.FullScaleVolts).Address(hostAddress())
	eng.Announce()

	logger.Info("controller running", zap.String("backend", backend), zap.String("broker", cfg.Broker.URL))
	if err := eng.Run(ctx); err != nil {
		return err
	}

	if record {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		snap := eng.Params().Snapshot()
		runID, err := st.Save(storage.RunMetadata{
			Name:      backend,
			Backend:   backend,
			Tick:      cfg.Loop.Tick.Seconds(),
			Params:    snap.ControllerParameters,
			Reference: snap.Rss,
			Metrics:   set.Values(),
		}, rec.Samples())
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

// openPlant returns the sensor and pump for the selected backend. The
// simulated tank is advanced in the background until ctx is done.
func openPlant(ctx context.Context, cfg *config.Config, clk clock.Clock) (engine.LevelSensor, actuator.Pump, error) {
	switch backend {
	case backendHardware:
		echo, err := hardware.OpenHCSR04(cfg.Hardware.TriggerPin, cfg.Hardware.EchoPin)
		if err != nil {
			return nil, nil, err
		}
		pump, err := hardware.OpenPWMPump(cfg.Hardware.PWMPin, cfg.Hardware.Dir1Pin, cfg.Hardware.Dir2Pin,
			cfg.Actuator.PWMFrequency, cfg.Actuator.MaxDuty)
		if err != nil {
			return nil, nil, err
		}
		return sensor.New(echo, cfg.RangerConfig(), clk), pump, nil
	case backendSim:
		rig := scenario.NewRig(cfg, clk, time.Now().UnixNano())
		go rig.Tank.Run(ctx, clk, cfg.Loop.Tick)
		return rig.Sensor, rig.Tank, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, backendHardware, backendSim)
	}
}

// hostAddress is the local address used for outbound traffic. Dialing UDP
// sends nothing.
func hostAddress() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "0.0.0.0"
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	clk := clock.New()
	bus := memory.New(0)
	defer bus.Close()

	rig := scenario.NewRig(cfg, clk, time.Now().UnixNano())
	eng := engine.New(cfg.EngineConfig(), engine.Deps{
		Clock:     clk,
		Sensor:    rig.Sensor,
		Pump:      rig.Tank,
		Publisher: bus,
		Params:    cfg.ParamStore(),
		Model:     cfg.Model(),
		// The dashboard owns the terminal.
		Logger: zap.NewNop(),
	})
	if err := bus.Subscribe(telemetry.Consumed(), eng.Handle); err != nil {
		return err
	}
	mon := viz.NewMonitor(eng, bus, cfg.Plant.TotalHeight)
	eng.AddObserver(mon.Feed())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go rig.Tank.Run(ctx, clk, cfg.Loop.Tick)
	go eng.Run(ctx)

	_, err = tea.NewProgram(mon, tea.WithAltScreen()).Run()
	cancel()
	eng.Stop()
	return err
}
