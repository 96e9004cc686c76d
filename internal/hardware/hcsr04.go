package hardware

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/san-kum/levelctl/internal/sensor"
)

const (
	triggerSettle = 2 * time.Microsecond
	triggerWidth  = 10 * time.Microsecond
)

// HCSR04 is a sensor.Echo over a trigger output and an echo input.
type HCSR04 struct {
	trigger gpio.PinOut
	echo    gpio.PinIn
}

var _ sensor.Echo = (*HCSR04)(nil)

func NewHCSR04(trigger gpio.PinOut, echo gpio.PinIn) (*HCSR04, error) {
	if err := trigger.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("trigger pin %s: %w", trigger, err)
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("echo pin %s: %w", echo, err)
	}
	return &HCSR04{trigger: trigger, echo: echo}, nil
}

// OpenHCSR04 initialises the host and resolves both pins by name.
func OpenHCSR04(triggerName, echoName string) (*HCSR04, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	trigger, err := Pin(triggerName)
	if err != nil {
		return nil, err
	}
	echo, err := Pin(echoName)
	if err != nil {
		return nil, err
	}
	return NewHCSR04(trigger, echo)
}

// Pulse fires one trigger and measures the echo high time. Both the wait for
// the rising edge and the pulse itself share one timeout budget; running out
// of it, or any pin error, yields zero.
func (h *HCSR04) Pulse(ctx context.Context, timeout time.Duration) time.Duration {
	if ctx.Err() != nil {
		return 0
	}
	if err := h.echo.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return 0
	}

	if err := h.trigger.Out(gpio.Low); err != nil {
		return 0
	}
	time.Sleep(triggerSettle)
	if err := h.trigger.Out(gpio.High); err != nil {
		return 0
	}
	time.Sleep(triggerWidth)
	if err := h.trigger.Out(gpio.Low); err != nil {
		return 0
	}

	deadline := time.Now().Add(timeout)
	if !h.echo.WaitForEdge(timeout) {
		return 0
	}
	start := time.Now()

	if err := h.echo.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining <= 0 || !h.echo.WaitForEdge(remaining) {
		return 0
	}
	return time.Since(start)
}
