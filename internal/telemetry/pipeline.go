package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devicesim/esp32-rest-sim/internal/device"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/mqtt"
)

const (
	// queueSize bounds the events waiting for the sinks.
	queueSize = 256

	// sinkTimeout bounds one history write.
	sinkTimeout = 5 * time.Second

	// SourceSimulator tags readings produced by the simulator in InfluxDB.
	SourceSimulator = "simulator"
)

// Publisher is the MQTT side of the pipeline. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// PointWriter is the InfluxDB side of the pipeline. *influxdb.Client satisfies it.
type PointWriter interface {
	WriteSensorReading(device, source string, temperature, humidity, pressure float64, at time.Time)
	WriteControlOutput(device, actuator string, on bool, at time.Time)
}

// Logger defines the logging interface used by the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config wires the optional sinks. Nil sinks are skipped.
type Config struct {
	MQTT    Publisher
	Topics  mqtt.Topics
	Points  PointWriter
	History device.History
	Logger  Logger
}

// Pipeline forwards simulator events to MQTT, InfluxDB and the history
// store on a single worker goroutine, so the request that caused an event
// never waits on a broker or database.
//
// Events that arrive while the queue is full are dropped and counted.
type Pipeline struct {
	mqtt    Publisher
	topics  mqtt.Topics
	points  PointWriter
	history device.History
	logger  Logger

	queue chan device.Event
	done  chan struct{}
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Processed uint64
	Dropped   uint64
	Failed    uint64
}

// New creates a pipeline. Call Start to begin processing.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Pipeline{
		mqtt:    cfg.MQTT,
		topics:  cfg.Topics,
		points:  cfg.Points,
		history: cfg.History,
		logger:  logger,
		queue:   make(chan device.Event, queueSize),
		done:    make(chan struct{}),
	}
}

// HandleEvent queues ev for the sinks. It never blocks, so it can be
// registered directly as a device.Listener.
func (p *Pipeline) HandleEvent(ev device.Event) {
	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
		p.logger.Warn("telemetry queue full, dropping event", "type", ev.Type)
	}
}

// Start launches the worker. It stops when ctx is cancelled or Stop is called.
func (p *Pipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.worker(ctx)
	})
}

// Stop stops the worker after it drains queued events.
// Safe to call multiple times.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.drain(context.Background())
			return
		case <-p.done:
			p.drain(ctx)
			return
		case ev := <-p.queue:
			p.process(ctx, ev)
		}
	}
}

// drain processes whatever is already queued (best-effort, non-blocking).
func (p *Pipeline) drain(ctx context.Context) {
	for {
		select {
		case ev := <-p.queue:
			p.process(ctx, ev)
		default:
			return
		}
	}
}

// process sends one event to every configured sink. A failing sink does not
// stop the others.
func (p *Pipeline) process(ctx context.Context, ev device.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.logger.Error("telemetry sink panic", "type", ev.Type, "error", fmt.Sprint(r))
		}
	}()

	p.publish(ev)
	p.write(ev)
	p.record(ctx, ev)
	p.processed.Add(1)
}

// publish sends the event to MQTT: readings on the sensors topic, every
// other state change on the state topic.
func (p *Pipeline) publish(ev device.Event) {
	if p.mqtt == nil {
		return
	}
	topic := p.topics.State()
	if ev.Type == device.EventSensorReading {
		topic = p.topics.Sensors()
	}
	if err := p.mqtt.PublishJSON(topic, ev, false); err != nil {
		p.failed.Add(1)
		p.logger.Debug("mqtt publish failed", "topic", topic, "error", err)
	}
}

// write stores readings and actuator levels as InfluxDB points.
func (p *Pipeline) write(ev device.Event) {
	if p.points == nil {
		return
	}
	switch payload := ev.Payload.(type) {
	case device.SensorReading:
		p.points.WriteSensorReading(ev.DeviceName, SourceSimulator,
			payload.Temperature, payload.Humidity, payload.Pressure, ev.Timestamp)
	case device.ControlResult:
		p.points.WriteControlOutput(ev.DeviceName, string(payload.Device), payload.Output == device.LevelOn, ev.Timestamp)
	}
}

// record appends readings and commands to the history store.
func (p *Pipeline) record(ctx context.Context, ev device.Event) {
	if p.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	var err error
	switch payload := ev.Payload.(type) {
	case device.SensorReading:
		err = p.history.RecordReading(ctx, ev.DeviceName, payload)
	case device.ControlResult:
		err = p.history.RecordCommand(ctx, payload)
	default:
		return
	}
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("history write failed", "type", ev.Type, "error", err)
	}
}
