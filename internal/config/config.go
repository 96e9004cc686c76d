package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/levelctl/internal/actuator"
	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/plant"
	"github.com/san-kum/levelctl/internal/sensor"
	"github.com/san-kum/levelctl/internal/telemetry"
	"github.com/san-kum/levelctl/internal/transport/mqtt"
)

const (
	DefaultBrokerURL    = "tcp://localhost:1883"
	DefaultClientID     = "levelctl"
	DefaultPWMFrequency = 5000
	DefaultLogLevel     = "info"

	EnvUsername = "LEVELCTL_MQTT_USERNAME"
	EnvPassword = "LEVELCTL_MQTT_PASSWORD"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Broker     BrokerConfig     `yaml:"broker"`
	Controller ControllerConfig `yaml:"controller"`
	Plant      PlantConfig      `yaml:"plant"`
	Loop       LoopConfig       `yaml:"loop"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Actuator   ActuatorConfig   `yaml:"actuator"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	Log        LogConfig        `yaml:"log"`
}

type BrokerConfig struct {
	URL       string        `yaml:"url"`
	ClientID  string        `yaml:"client_id"`
	Username  string        `yaml:"username,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	QoS       byte          `yaml:"qos"`
	Retain    bool          `yaml:"retain"`
}

type ControllerConfig struct {
	K                    float64 `yaml:"k"`
	Ke                   float64 `yaml:"ke"`
	Nx                   float64 `yaml:"nx"`
	Nu                   float64 `yaml:"nu"`
	Reference            float64 `yaml:"reference"`
	ResetEstimateOnStart bool    `yaml:"reset_estimate_on_start"`
}

// PlantConfig describes the tank. InflowScale multiplies b for the simulated
// tank only, so the observer can be run against a mismatched model.
type PlantConfig struct {
	A            float64 `yaml:"a"`
	B            float64 `yaml:"b"`
	TotalHeight  float64 `yaml:"total_height"`
	InitialLevel float64 `yaml:"initial_level"`
	InflowScale  float64 `yaml:"inflow_scale"`
}

type LoopConfig struct {
	Tick time.Duration `yaml:"tick"`
}

type SensorConfig struct {
	Samples     int           `yaml:"samples"`
	Timeout     time.Duration `yaml:"timeout"`
	Settle      time.Duration `yaml:"settle"`
	MicrosPerCm float64       `yaml:"micros_per_cm"`
	NoiseCm     float64       `yaml:"noise_cm"`
	Dropout     float64       `yaml:"dropout"`
}

type ActuatorConfig struct {
	MaxDuty        int     `yaml:"max_duty"`
	FullScaleVolts float64 `yaml:"full_scale_volts"`
	PWMFrequency   int     `yaml:"pwm_frequency"`
}

// HardwareConfig names GPIO lines as the host's periph registry knows them.
type HardwareConfig struct {
	TriggerPin string `yaml:"trigger_pin"`
	EchoPin    string `yaml:"echo_pin"`
	PWMPin     string `yaml:"pwm_pin"`
	Dir1Pin    string `yaml:"dir1_pin"`
	Dir2Pin    string `yaml:"dir2_pin"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:       DefaultBrokerURL,
			ClientID:  DefaultClientID,
			KeepAlive: mqtt.DefaultKeepAlive,
		},
		Controller: ControllerConfig{
			K:         params.DefaultK,
			Ke:        params.DefaultKe,
			Nx:        params.DefaultNx,
			Nu:        params.DefaultNu,
			Reference: params.DefaultReference,
		},
		Plant: PlantConfig{
			A:           plant.DefaultA,
			B:           plant.DefaultB,
			TotalHeight: plant.DefaultTotalHeight,
			InflowScale: 1,
		},
		Loop: LoopConfig{Tick: engine.DefaultTick},
		Sensor: SensorConfig{
			Samples:     sensor.DefaultSamples,
			Timeout:     sensor.DefaultTimeout,
			Settle:      sensor.DefaultSettle,
			MicrosPerCm: sensor.DefaultMicrosPerCm,
		},
		Actuator: ActuatorConfig{
			MaxDuty:        actuator.DefaultMaxDuty,
			FullScaleVolts: telemetry.DefaultFullScaleVolts,
			PWMFrequency:   DefaultPWMFrequency,
		},
		Hardware: HardwareConfig{
			TriggerPin: "GPIO13",
			EchoPin:    "GPIO12",
			PWMPin:     "GPIO25",
			Dir1Pin:    "GPIO26",
			Dir2Pin:    "GPIO27",
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load reads path on top of DefaultConfig.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base, so values missing from the file keep
// whatever base (typically a preset) carries. base is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ApplyEnv fills broker credentials from the environment when set.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvUsername); ok {
		c.Broker.Username = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Broker.Password = v
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Loop.Tick <= 0:
		return fmt.Errorf("%w: loop.tick must be positive, got %s", ErrInvalidConfig, c.Loop.Tick)
	case c.Sensor.Samples <= 0:
		return fmt.Errorf("%w: sensor.samples must be positive, got %d", ErrInvalidConfig, c.Sensor.Samples)
	case c.Sensor.Timeout <= 0:
		return fmt.Errorf("%w: sensor.timeout must be positive, got %s", ErrInvalidConfig, c.Sensor.Timeout)
	case c.Sensor.MicrosPerCm <= 0:
		return fmt.Errorf("%w: sensor.micros_per_cm must be positive, got %g", ErrInvalidConfig, c.Sensor.MicrosPerCm)
	case c.Sensor.Dropout < 0 || c.Sensor.Dropout > 1:
		return fmt.Errorf("%w: sensor.dropout must be in [0,1], got %g", ErrInvalidConfig, c.Sensor.Dropout)
	case c.Broker.QoS > 2:
		return fmt.Errorf("%w: broker.qos must be 0, 1 or 2, got %d", ErrInvalidConfig, c.Broker.QoS)
	}
	return nil
}

func (c *Config) Parameters() params.ControllerParameters {
	return params.ControllerParameters{
		K:  c.Controller.K,
		Ke: c.Controller.Ke,
		Nx: c.Controller.Nx,
		Nu: c.Controller.Nu,
	}
}

func (c *Config) ParamStore() *params.Store {
	return params.NewStore(c.Parameters(), params.Setpoint{Rss: c.Controller.Reference})
}

func (c *Config) Model() *plant.Tank {
	t := plant.NewTank(c.Plant.A, c.Plant.B)
	t.Height = c.Plant.TotalHeight
	return t
}

func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Tick:                 c.Loop.Tick,
		FullScaleVolts:       c.Actuator.FullScaleVolts,
		ResetEstimateOnStart: c.Controller.ResetEstimateOnStart,
	}
}

func (c *Config) RangerConfig() sensor.Config {
	return sensor.Config{
		Samples:     c.Sensor.Samples,
		Timeout:     c.Sensor.Timeout,
		Settle:      c.Sensor.Settle,
		MicrosPerCm: c.Sensor.MicrosPerCm,
		TotalHeight: c.Plant.TotalHeight,
	}
}

func (c *Config) MQTTOptions() mqtt.Options {
	return mqtt.Options{
		BrokerURL: c.Broker.URL,
		ClientID:  c.Broker.ClientID,
		Username:  c.Broker.Username,
		Password:  c.Broker.Password,
		KeepAlive: c.Broker.KeepAlive,
		QoS:       c.Broker.QoS,
		Retain:    c.Broker.Retain,
	}
}
