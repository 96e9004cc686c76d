// Package engine runs the level control loop.
//
// An [Engine] owns the observer estimate and, on each tick while the
// experiment is Running, performs: sensor read, feedback law, observer
// update, pump write, telemetry publish. Operator messages enter through
// [Engine.Handle]; they are serialised with ticks so a message is applied
// strictly between two ticks.
//
//	eng := engine.New(cfg, engine.Deps{...})
//	bus.Subscribe(telemetry.Consumed(), eng.Handle)
//	eng.Announce()
//	err := eng.Run(ctx)
package engine
