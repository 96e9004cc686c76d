package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/san-kum/levelctl/internal/actuator"
	"github.com/san-kum/levelctl/internal/control"
)

const DefaultPWMFrequency = 5 * physic.KiloHertz

// PWMPump drives the pump speed line with hardware PWM. The H-bridge
// direction lines are fixed to forward when the pump is opened.
type PWMPump struct {
	pwm     gpio.PinOut
	freq    physic.Frequency
	maxDuty int

	mu   sync.Mutex
	last float64
}

var _ actuator.Pump = (*PWMPump)(nil)

func NewPWMPump(pwm, dir1, dir2 gpio.PinOut, freq physic.Frequency, maxDuty int) (*PWMPump, error) {
	if freq <= 0 {
		freq = DefaultPWMFrequency
	}
	if maxDuty <= 0 {
		maxDuty = actuator.DefaultMaxDuty
	}
	if err := dir1.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("direction pin %s: %w", dir1, err)
	}
	if err := dir2.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("direction pin %s: %w", dir2, err)
	}
	p := &PWMPump{pwm: pwm, freq: freq, maxDuty: maxDuty}
	if err := p.Write(0); err != nil {
		return nil, err
	}
	return p, nil
}

// OpenPWMPump initialises the host and resolves the speed and direction
// pins by name. freqHz <= 0 selects DefaultPWMFrequency.
func OpenPWMPump(pwmName, dir1Name, dir2Name string, freqHz, maxDuty int) (*PWMPump, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	pins := make([]gpio.PinIO, 0, 3)
	for _, name := range []string{pwmName, dir1Name, dir2Name} {
		p, err := Pin(name)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return NewPWMPump(pins[0], pins[1], pins[2], physic.Frequency(freqHz)*physic.Hertz, maxDuty)
}

// Duty converts a command into the periph duty scale via the rig's
// whole-percent mapping.
func (p *PWMPump) Duty(command float64) gpio.Duty {
	d := actuator.ToDuty(command, p.maxDuty)
	return gpio.Duty(int64(d) * int64(gpio.DutyMax) / int64(p.maxDuty))
}

func (p *PWMPump) Write(command float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pwm.PWM(p.Duty(command), p.freq); err != nil {
		return fmt.Errorf("pwm pin %s: %w", p.pwm, err)
	}
	p.last = control.Clamp(command)
	return nil
}

// Command returns the last command applied.
func (p *PWMPump) Command() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
