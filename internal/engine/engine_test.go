package engine_test

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/levelctl/internal/actuator"
	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/lifecycle"
	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/sensor"
	"github.com/san-kum/levelctl/internal/telemetry"
	"github.com/san-kum/levelctl/internal/transport/memory"
)

type fakeSensor struct {
	level float64
	reads int
}

func (f *fakeSensor) Read(context.Context) sensor.Reading {
	f.reads++
	return sensor.Reading{Level: f.level, Distance: 20 - f.level}
}

type sampleCounter struct {
	n atomic.Int64
}

func (c *sampleCounter) OnTick(engine.Sample) { c.n.Add(1) }

var _ = Describe("Engine", func() {
	var (
		mock  *clock.Mock
		probe *fakeSensor
		pump  *actuator.Recorder
		bus   *memory.Bus
		store *params.Store
		cfg   engine.Config
		eng   *engine.Engine
		ctx   context.Context
	)

	last := func(topic telemetry.Topic) string {
		payload, _ := bus.Last(topic)
		return payload
	}

	build := func() {
		eng = engine.New(cfg, engine.Deps{
			Clock:     mock,
			Sensor:    probe,
			Pump:      pump,
			Publisher: bus,
			Params:    store,
		})
		Expect(bus.Subscribe(telemetry.Consumed(), eng.Handle)).To(Succeed())
	}

	BeforeEach(func() {
		mock = clock.NewMock()
		probe = &fakeSensor{level: 4.0}
		pump = actuator.NewRecorder(actuator.DefaultMaxDuty)
		bus = memory.New(1024)
		store = params.NewDefaultStore()
		cfg = engine.DefaultConfig()
		ctx = context.Background()
		build()
	})

	Describe("while idle", func() {
		It("announces Idle", func() {
			eng.Announce()
			Expect(last(telemetry.TopicExperimentState)).To(Equal("Idle"))
		})

		It("does not read, estimate, actuate or publish", func() {
			for i := 0; i < 10; i++ {
				_, ran := eng.Tick(ctx)
				Expect(ran).To(BeFalse())
			}
			Expect(probe.reads).To(BeZero())
			Expect(eng.Estimate()).To(BeZero())
			Expect(pump.Writes()).To(BeZero())
			Expect(bus.Payloads(telemetry.TopicLevel)).To(BeEmpty())
		})
	})

	Describe("the first tick with reference gains", func() {
		It("saturates the command and takes one observer step", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			Expect(eng.State()).To(Equal(lifecycle.Running))

			s, ran := eng.Tick(ctx)
			Expect(ran).To(BeTrue())

			Expect(s.RawCommand).To(BeNumerically("~", 507.615, 1e-9))
			Expect(s.Command).To(Equal(100.0))
			Expect(s.Saturated).To(BeTrue())

			want := (-0.0052*0 + 0.0197*100 + 9.9948*(4.0-0)) * 0.01
			Expect(s.Estimate).To(BeNumerically("~", want, 1e-12))
			Expect(pump.Command()).To(Equal(100.0))
			Expect(pump.Duty()).To(Equal(255))
		})

		It("publishes level, estimate, voltage and elapsed time", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			mock.Add(20 * time.Millisecond)
			eng.Tick(ctx)

			Expect(last(telemetry.TopicLevel)).To(Equal("4.00"))
			Expect(last(telemetry.TopicEstimate)).To(Equal("0.42"))
			Expect(last(telemetry.TopicVoltage)).To(Equal("12.00"))
			Expect(last(telemetry.TopicElapsed)).To(Equal("0.02"))
		})
	})

	Describe("reference messages", func() {
		It("start the experiment once per idle period", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			started := mock.Now()
			mock.Add(time.Second)
			bus.Publish(telemetry.TopicReference, "12.5")

			Expect(bus.Payloads(telemetry.TopicExperimentState)).To(Equal([]string{"Running"}))
			Expect(store.Snapshot().Rss).To(Equal(12.5))

			s, _ := eng.Tick(ctx)
			Expect(s.Time).To(Equal(mock.Now().Sub(started).Seconds()))
			Expect(s.Reference).To(Equal(12.5))
		})
	})

	Describe("terminate", func() {
		It("zeroes the pump immediately and enters Stopped", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			eng.Tick(ctx)
			Expect(pump.Command()).To(Equal(100.0))

			bus.Publish(telemetry.TopicTerminate, telemetry.StopPayload)

			Expect(pump.Command()).To(BeZero())
			Expect(eng.State()).To(Equal(lifecycle.Stopped))
			Expect(last(telemetry.TopicExperimentState)).To(Equal("Stopped"))
		})

		It("stops even when nothing is running", func() {
			bus.Publish(telemetry.TopicTerminate, "STOP")
			Expect(eng.State()).To(Equal(lifecycle.Stopped))
			Expect(pump.Writes()).To(Equal(1))
			Expect(pump.Command()).To(BeZero())
		})

		It("ignores any payload other than the stop literal", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			bus.Publish(telemetry.TopicTerminate, "stop")
			bus.Publish(telemetry.TopicTerminate, "STOP ")
			Expect(eng.State()).To(Equal(lifecycle.Running))
		})

		It("skips observer updates afterwards", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			eng.Tick(ctx)
			bus.Publish(telemetry.TopicTerminate, "STOP")
			est := eng.Estimate()

			for i := 0; i < 5; i++ {
				eng.Tick(ctx)
			}
			Expect(eng.Estimate()).To(Equal(est))
			Expect(probe.reads).To(Equal(1))
		})
	})

	Describe("the reference/stop/reference round trip", func() {
		It("walks Idle→Running→Stopped→Running with the pump zeroed at the stop", func() {
			var commandAtStop float64 = -1
			_ = bus.Subscribe([]telemetry.Topic{telemetry.TopicExperimentState}, func(_ telemetry.Topic, p string) {
				if p == "Stopped" {
					commandAtStop = pump.Command()
				}
			})

			eng.Announce()
			bus.Publish(telemetry.TopicReference, "10.0")
			eng.Tick(ctx)
			bus.Publish(telemetry.TopicTerminate, "STOP")
			bus.Publish(telemetry.TopicReference, "5.0")

			Expect(bus.Payloads(telemetry.TopicExperimentState)).To(Equal([]string{"Idle", "Running", "Stopped", "Running"}))
			Expect(commandAtStop).To(BeZero())
			Expect(store.Snapshot().Rss).To(Equal(5.0))
		})

		It("carries the estimate across the restart by default", func() {
			bus.Publish(telemetry.TopicReference, "10.0")
			eng.Tick(ctx)
			est := eng.Estimate()
			Expect(est).NotTo(BeZero())

			bus.Publish(telemetry.TopicTerminate, "STOP")
			bus.Publish(telemetry.TopicReference, "5.0")
			Expect(eng.Estimate()).To(Equal(est))
		})

		It("zeroes the estimate on restart when configured to", func() {
			cfg.ResetEstimateOnStart = true
			bus = memory.New(1024)
			build()

			bus.Publish(telemetry.TopicReference, "10.0")
			eng.Tick(ctx)
			bus.Publish(telemetry.TopicTerminate, "STOP")
			bus.Publish(telemetry.TopicReference, "5.0")
			Expect(eng.Estimate()).To(BeZero())
		})
	})

	Describe("parameter messages", func() {
		It("update the store", func() {
			bus.Publish(telemetry.TopicGain, "12.5")
			bus.Publish(telemetry.TopicObserverGain, "3")
			bus.Publish(telemetry.TopicNx, "0.9")
			bus.Publish(telemetry.TopicNu, "0.3")

			Expect(store.Snapshot().ControllerParameters).To(Equal(params.ControllerParameters{K: 12.5, Ke: 3, Nx: 0.9, Nu: 0.3}))
			Expect(eng.State()).To(Equal(lifecycle.Idle))
		})

		It("default malformed numbers to zero", func() {
			Expect(func() { bus.Publish(telemetry.TopicGain, "abc") }).NotTo(Panic())
			Expect(store.Snapshot().K).To(BeZero())
		})

		It("keep the pump off when a gain is NaN", func() {
			bus.Publish(telemetry.TopicGain, "NaN")
			bus.Publish(telemetry.TopicReference, "10.0")

			s, _ := eng.Tick(ctx)
			Expect(math.IsNaN(s.RawCommand)).To(BeTrue())
			Expect(s.Command).To(BeZero())
			Expect(pump.Command()).To(BeZero())
		})

		It("ignore unknown topics", func() {
			before := store.Snapshot()
			eng.OnMessage("reguladorK", "1.0")
			Expect(store.Snapshot()).To(Equal(before))
		})
	})

	Describe("Run", func() {
		It("ticks on the clock until cancelled", func() {
			counter := &sampleCounter{}
			eng.AddObserver(counter)
			bus.Publish(telemetry.TopicReference, "10.0")

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- eng.Run(runCtx) }()

			Eventually(func() int64 {
				mock.Add(engine.DefaultTick)
				return counter.n.Load()
			}).Should(BeNumerically(">=", 3))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})
})
