// Package hardware drives the rig through periph.io: an HC-SR04 style
// ultrasonic ranger and a PWM pump behind an H-bridge.
package hardware

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var ErrPinNotFound = errors.New("gpio pin not found")

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the host drivers. Safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return initErr
}

// Pin looks a line up by its registry name, e.g. "GPIO25".
func Pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return p, nil
}
