// Package params holds the controller parameters an operator can change at
// runtime. Values are reset to their defaults on every boot.
package params

import (
	"fmt"
	"sync"

	"github.com/san-kum/levelctl/internal/dynamo"
)

const (
	DefaultK         = 50.4975
	DefaultKe        = 9.9948
	DefaultNx        = 1.0
	DefaultNu        = 0.264
	DefaultReference = 10.0
)

// ControllerParameters are the feedback gain K, observer gain Ke and the
// steady-state scaling factors Nx, Nu.
type ControllerParameters struct {
	K  float64 `yaml:"k" json:"k"`
	Ke float64 `yaml:"ke" json:"ke"`
	Nx float64 `yaml:"nx" json:"nx"`
	Nu float64 `yaml:"nu" json:"nu"`
}

func DefaultParameters() ControllerParameters {
	return ControllerParameters{K: DefaultK, Ke: DefaultKe, Nx: DefaultNx, Nu: DefaultNu}
}

// Setpoint is the desired steady-state level in centimetres.
type Setpoint struct {
	Rss float64 `yaml:"rss" json:"rss"`
}

// Snapshot is a consistent copy of everything a tick reads.
type Snapshot struct {
	ControllerParameters
	Setpoint
}

// Store guards the live parameters. Writes come from message dispatch,
// reads from the control tick.
type Store struct {
	mu  sync.RWMutex
	cur Snapshot
}

func NewStore(p ControllerParameters, sp Setpoint) *Store {
	return &Store{cur: Snapshot{ControllerParameters: p, Setpoint: sp}}
}

func NewDefaultStore() *Store {
	return NewStore(DefaultParameters(), Setpoint{Rss: DefaultReference})
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) SetK(v float64)         { s.set(func(c *Snapshot) { c.K = v }) }
func (s *Store) SetKe(v float64)        { s.set(func(c *Snapshot) { c.Ke = v }) }
func (s *Store) SetNx(v float64)        { s.set(func(c *Snapshot) { c.Nx = v }) }
func (s *Store) SetNu(v float64)        { s.set(func(c *Snapshot) { c.Nu = v }) }
func (s *Store) SetReference(v float64) { s.set(func(c *Snapshot) { c.Rss = v }) }

func (s *Store) set(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cur)
}

// GetParams returns the parameters keyed by their topic-independent names.
func (s *Store) GetParams() map[string]float64 {
	c := s.Snapshot()
	return map[string]float64{
		"K":   c.K,
		"Ke":  c.Ke,
		"Nx":  c.Nx,
		"Nu":  c.Nu,
		"rss": c.Rss,
	}
}

func (s *Store) SetParam(name string, value float64) error {
	switch name {
	case "K":
		s.SetK(value)
	case "Ke":
		s.SetKe(value)
	case "Nx":
		s.SetNx(value)
	case "Nu":
		s.SetNu(value)
	case "rss":
		s.SetReference(value)
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
