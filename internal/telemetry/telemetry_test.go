package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/devicesim/esp32-rest-sim/internal/device"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/database"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/mqtt"
	_ "github.com/devicesim/esp32-rest-sim/migrations" // Embedded schema
)

// ─── Fakes ─────────────────────────────────────────────────────────

type published struct {
	Topic string
	Type  device.EventType
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishJSON(topic string, v any, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, _ := v.(device.Event) //nolint:errcheck // test fake
	f.msgs = append(f.msgs, published{Topic: topic, Type: ev.Type})
	return f.err
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

type point struct {
	Device   string
	Actuator string
	On       bool
	Temp     float64
}

type fakePoints struct {
	mu     sync.Mutex
	points []point
}

func (f *fakePoints) WriteSensorReading(dev, _ string, temperature, _, _ float64, _ time.Time) {
	f.mu.Lock()
	f.points = append(f.points, point{Device: dev, Temp: temperature})
	f.mu.Unlock()
}

func (f *fakePoints) WriteControlOutput(dev, actuator string, on bool, _ time.Time) {
	f.mu.Lock()
	f.points = append(f.points, point{Device: dev, Actuator: actuator, On: on})
	f.mu.Unlock()
}

func (f *fakePoints) snapshot() []point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]point(nil), f.points...)
}

type fakeHistory struct {
	mu       sync.Mutex
	readings []device.SensorReading
	commands []device.ControlResult
	prunes   int
	err      error
}

func (f *fakeHistory) RecordReading(_ context.Context, _ string, r device.SensorReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return f.err
}

func (f *fakeHistory) RecordCommand(_ context.Context, r device.ControlResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, r)
	return f.err
}

func (f *fakeHistory) ListReadings(context.Context, int) ([]device.ReadingRecord, error) {
	return nil, nil
}

func (f *fakeHistory) ListCommands(context.Context, int) ([]device.CommandRecord, error) {
	return nil, nil
}

func (f *fakeHistory) Prune(context.Context, time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prunes++
	return 1, f.err
}

func (f *fakeHistory) counts() (readings, commands, prunes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings), len(f.commands), f.prunes
}

type fakeSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.topic = topic
	f.handler = handler
	return f.err
}

func newSimulator(t *testing.T) *device.Simulator {
	t.Helper()
	sim := device.NewSimulator(config.DeviceConfig{
		Name:           "Bench",
		Version:        "1.0.0",
		ChipID:         "A4CF12345678",
		IPAddress:      "10.0.0.2",
		SensorInterval: 5000,
	})
	t.Cleanup(sim.Close)
	return sim
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ─── Pipeline Tests ────────────────────────────────────────────────

func TestPipeline_FansOutEvents(t *testing.T) {
	pub := &fakePublisher{}
	points := &fakePoints{}
	history := &fakeHistory{}
	p := New(Config{
		MQTT:    pub,
		Topics:  mqtt.NewTopics("esp32sim", "Bench"),
		Points:  points,
		History: history,
	})
	p.Start(context.Background())
	defer p.Stop()

	sim := newSimulator(t)
	sim.Subscribe(p.HandleEvent)

	reading := sim.ReadSensors()
	if _, err := sim.Control(device.ControlCommand{Device: device.ActuatorRelay, State: device.ActionOn}, device.SourceAPI); err != nil {
		t.Fatalf("Control: %v", err)
	}
	sim.UpdateConfig(device.ConfigPatch{})

	eventually(t, func() bool { return p.Stats().Processed == 3 })

	wantMsgs := []published{
		{Topic: "esp32sim/bench/sensors", Type: device.EventSensorReading},
		{Topic: "esp32sim/bench/state", Type: device.EventControlChanged},
		{Topic: "esp32sim/bench/state", Type: device.EventConfigChanged},
	}
	if diff := cmp.Diff(wantMsgs, pub.snapshot()); diff != "" {
		t.Errorf("mqtt messages mismatch (-want +got):\n%s", diff)
	}

	wantPoints := []point{
		{Device: "Bench", Temp: reading.Temperature},
		{Device: "Bench", Actuator: "relay", On: true},
	}
	if diff := cmp.Diff(wantPoints, points.snapshot()); diff != "" {
		t.Errorf("influx points mismatch (-want +got):\n%s", diff)
	}

	readings, commands, _ := history.counts()
	if readings != 1 || commands != 1 {
		t.Errorf("history readings=%d commands=%d, want 1/1", readings, commands)
	}
}

func TestPipeline_EmptyDeviceNameStillRecorded(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	history := device.NewSQLiteHistory(db.DB)

	p := New(Config{History: history})
	p.Start(ctx)
	defer p.Stop()

	sim := newSimulator(t)
	sim.Subscribe(p.HandleEvent)

	empty := ""
	sim.UpdateConfig(device.ConfigPatch{DeviceName: &empty})
	sim.ReadSensors()

	eventually(t, func() bool { return p.Stats().Processed == 2 })
	if got := p.Stats().Failed; got != 0 {
		t.Errorf("Failed = %d, want 0", got)
	}

	records, err := history.ListReadings(ctx, 10)
	if err != nil {
		t.Fatalf("ListReadings: %v", err)
	}
	if len(records) != 1 || records[0].DeviceName != "A4CF12345678" {
		t.Errorf("readings = %+v, want one keyed by chip ID", records)
	}
}

func TestPipeline_TopicsFixedAtBoot(t *testing.T) {
	pub := &fakePublisher{}
	p := New(Config{MQTT: pub, Topics: mqtt.NewTopics("esp32sim", "Bench")})
	p.Start(context.Background())
	defer p.Stop()

	sim := newSimulator(t)
	sim.Subscribe(p.HandleEvent)

	renamed := "Lab"
	sim.UpdateConfig(device.ConfigPatch{DeviceName: &renamed})
	sim.ReadSensors()

	eventually(t, func() bool { return p.Stats().Processed == 2 })
	want := []published{
		{Topic: "esp32sim/bench/state", Type: device.EventConfigChanged},
		{Topic: "esp32sim/bench/sensors", Type: device.EventSensorReading},
	}
	if diff := cmp.Diff(want, pub.snapshot()); diff != "" {
		t.Errorf("mqtt messages mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_SinkFailuresCounted(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	history := &fakeHistory{err: errors.New("disk full")}
	p := New(Config{MQTT: pub, History: history})
	p.Start(context.Background())
	defer p.Stop()

	p.HandleEvent(device.Event{Type: device.EventSensorReading, Payload: device.SensorReading{}})

	eventually(t, func() bool { return p.Stats().Processed == 1 })
	if got := p.Stats().Failed; got != 2 {
		t.Errorf("Failed = %d, want 2", got)
	}
}

func TestPipeline_NoSinks(t *testing.T) {
	p := New(Config{})
	p.Start(context.Background())

	p.HandleEvent(device.Event{Type: device.EventRebooted, Payload: device.Status{}})
	p.Stop()
	p.Stop()

	if got := p.Stats().Processed; got != 1 {
		t.Errorf("Processed = %d, want 1 after drain", got)
	}
}

func TestPipeline_DropsWhenFull(t *testing.T) {
	p := New(Config{})
	// Not started: nothing consumes the queue.
	for range queueSize + 5 {
		p.HandleEvent(device.Event{Type: device.EventSensorReading})
	}
	if got := p.Stats().Dropped; got != 5 {
		t.Errorf("Dropped = %d, want 5", got)
	}
}

func TestPipeline_StopsOnContextCancel(t *testing.T) {
	p := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

// ─── Command Tests ─────────────────────────────────────────────────

func TestSubscribeCommands(t *testing.T) {
	sim := newSimulator(t)
	sub := &fakeSubscriber{}
	topic := mqtt.NewTopics("esp32sim", "Bench").Command()

	if err := SubscribeCommands(sub, topic, 1, sim, nil); err != nil {
		t.Fatalf("SubscribeCommands: %v", err)
	}
	if sub.topic != "esp32sim/bench/command" {
		t.Errorf("topic = %q", sub.topic)
	}

	var sources []string
	sim.Subscribe(func(ev device.Event) {
		if r, ok := ev.Payload.(device.ControlResult); ok {
			sources = append(sources, r.Source)
		}
	})

	for _, payload := range []string{
		`{"device":"led","state":"on"}`,
		`{"device":"fan","state":"on"}`,
		`not json`,
		`{"device":"gpio","state":"toggle"}`,
	} {
		if err := sub.handler(topic, []byte(payload)); err != nil {
			t.Errorf("handler(%q) error = %v", payload, err)
		}
	}

	want := map[device.Actuator]device.Level{
		device.ActuatorLED:   device.LevelOn,
		device.ActuatorRelay: device.LevelOff,
		device.ActuatorGPIO:  device.LevelOn,
	}
	if diff := cmp.Diff(want, sim.Outputs()); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{device.SourceMQTT, device.SourceMQTT}, sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeCommands_Error(t *testing.T) {
	sub := &fakeSubscriber{err: mqtt.ErrNotConnected}
	err := SubscribeCommands(sub, "t", 1, newSimulator(t), nil)
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

// ─── Loop Tests ────────────────────────────────────────────────────

func TestRunSampler_FollowsInterval(t *testing.T) {
	sim := newSimulator(t)
	interval := 1 // clamped to MinSampleInterval
	sim.UpdateConfig(device.ConfigPatch{SensorInterval: &interval})

	var mu sync.Mutex
	count := 0
	sim.Subscribe(func(ev device.Event) {
		if ev.Type == device.EventSensorReading {
			mu.Lock()
			count++
			mu.Unlock()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSampler(ctx, sim, nil)
		close(done)
	}()

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 2
	})
	cancel()
	<-done
}

func TestSampleInterval(t *testing.T) {
	sim := newSimulator(t)
	if got := sampleInterval(sim); got != 5*time.Second {
		t.Errorf("sampleInterval = %v, want 5s", got)
	}
	zero := 0
	sim.UpdateConfig(device.ConfigPatch{SensorInterval: &zero})
	if got := sampleInterval(sim); got != MinSampleInterval {
		t.Errorf("sampleInterval = %v, want %v", got, MinSampleInterval)
	}
}

func TestRunPruner(t *testing.T) {
	history := &fakeHistory{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunPruner(ctx, history, time.Hour, 10*time.Millisecond, nil)
		close(done)
	}()

	eventually(t, func() bool {
		_, _, prunes := history.counts()
		return prunes >= 2
	})
	cancel()
	<-done
}
