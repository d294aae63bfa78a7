package device

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
)

// Logger defines the logging interface used by the Simulator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Simulator holds the in-memory state of one simulated ESP32.
//
// All public methods are thread-safe. Every call observes and mutates the
// state atomically, as the single-threaded firmware loop would.
type Simulator struct {
	mu sync.Mutex

	defaults Config
	config   Config
	outputs  map[Actuator]bool
	bootTime time.Time

	chipID    string
	ipAddress string

	rng      *rand.Rand
	now      func() time.Time
	freeHeap func() uint64

	rebootTimer *time.Timer

	listeners   []Listener
	listenersMu sync.RWMutex

	logger Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithRand seeds the value generator, for reproducible readings.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithFreeHeap replaces the runtime free heap reading.
func WithFreeHeap(fn func() uint64) Option {
	return func(s *Simulator) { s.freeHeap = fn }
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// NewSimulator creates a simulator booted now, with its config defaults,
// chip ID and IP address taken from cfg. An empty chip ID is generated and
// an empty IP address is detected from the host.
func NewSimulator(cfg config.DeviceConfig, opts ...Option) *Simulator {
	s := &Simulator{
		defaults: Config{
			SensorInterval: cfg.SensorInterval,
			LEDEnabled:     cfg.LEDEnabled,
			DeviceName:     cfg.Name,
			Version:        cfg.Version,
		},
		outputs:   make(map[Actuator]bool, len(Actuators)),
		chipID:    cfg.ChipID,
		ipAddress: cfg.IPAddress,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // Simulated values
		now:       time.Now,
		freeHeap:  runtimeFreeHeap,
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chipID == "" {
		s.chipID = generateChipID()
	}
	if s.ipAddress == "" {
		s.ipAddress = detectIPAddress()
	}

	s.config = s.defaults
	s.bootTime = s.now()
	return s
}

// Subscribe registers a listener for state change events.
func (s *Simulator) Subscribe(l Listener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// emit notifies listeners. An empty device_name is reported as the chip ID
// so downstream stores always get a device key.
func (s *Simulator) emit(eventType EventType, deviceName string, at time.Time, payload any) {
	if deviceName == "" {
		deviceName = s.chipID
	}

	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	ev := Event{Type: eventType, DeviceName: deviceName, Timestamp: at, Payload: payload}
	for _, l := range listeners {
		l(ev)
	}
}

// sinceBoot must be called with s.mu held.
func (s *Simulator) sinceBoot(now time.Time) time.Duration {
	d := now.Sub(s.bootTime)
	if d < 0 {
		return 0
	}
	return d
}

// Status returns the current identity and health snapshot.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Device:    s.config.DeviceName,
		Uptime:    int64(s.sinceBoot(s.now()) / time.Second),
		FreeHeap:  s.freeHeap(),
		ChipID:    s.chipID,
		WiFiRSSI:  rssiMin + s.rng.IntN(rssiMax-rssiMin+1),
		IPAddress: s.ipAddress,
	}
}

// DeviceName returns the configured device name.
func (s *Simulator) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.DeviceName
}

// BootTime returns when the simulator last (re)booted.
func (s *Simulator) BootTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootTime
}

// Config returns the current configuration.
func (s *Simulator) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// UpdateConfig merges the fields present in patch and returns the result.
// Absent fields keep their prior values.
func (s *Simulator) UpdateConfig(patch ConfigPatch) Config {
	s.mu.Lock()
	if patch.SensorInterval != nil {
		s.config.SensorInterval = *patch.SensorInterval
	}
	if patch.LEDEnabled != nil {
		s.config.LEDEnabled = *patch.LEDEnabled
	}
	if patch.DeviceName != nil {
		s.config.DeviceName = *patch.DeviceName
	}
	if patch.Version != nil {
		s.config.Version = *patch.Version
	}
	updated := s.config
	now := s.now()
	s.mu.Unlock()

	s.emit(EventConfigChanged, updated.DeviceName, now, updated)
	return updated
}

// Reboot resets the simulated device: uptime restarts from zero, the
// configuration returns to its defaults and every actuator turns off.
// A pending ScheduleReboot is cancelled.
func (s *Simulator) Reboot() Status {
	s.mu.Lock()
	if s.rebootTimer != nil {
		s.rebootTimer.Stop()
		s.rebootTimer = nil
	}
	s.bootTime = s.now()
	s.config = s.defaults
	clear(s.outputs)
	s.mu.Unlock()

	status := s.Status()
	s.logger.Info("device rebooted", "device", status.Device, "chip_id", status.ChipID)
	s.emit(EventRebooted, status.Device, s.BootTime(), status)
	return status
}

// ScheduleReboot reboots after delay, leaving time for the HTTP response
// to go out. It returns false if a reboot is already pending.
func (s *Simulator) ScheduleReboot(delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rebootTimer != nil {
		return false
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.rebootTimer != timer {
			// Cancelled or superseded.
			s.mu.Unlock()
			return
		}
		s.rebootTimer = nil
		s.mu.Unlock()
		s.Reboot()
	})
	s.rebootTimer = timer
	return true
}

// RebootPending reports whether a scheduled reboot has not yet run.
func (s *Simulator) RebootPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebootTimer != nil
}

// Close cancels any pending reboot.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebootTimer != nil {
		s.rebootTimer.Stop()
		s.rebootTimer = nil
	}
}
