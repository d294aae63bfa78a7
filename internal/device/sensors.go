package device

import "time"

// Simulated value ranges. Environmental values are generated in tenths,
// like random(200, 300) / 10.0 on the board, so the upper bound is never
// reached.
const (
	temperatureMinTenths = 200   // 20.0 °C
	temperatureMaxTenths = 300   // 30.0 °C, exclusive
	humidityMinTenths    = 400   // 40.0 %
	humidityMaxTenths    = 600   // 60.0 %, exclusive
	pressureMinTenths    = 10000 // 1000.0 hPa
	pressureMaxTenths    = 10200 // 1020.0 hPa, exclusive

	rssiMin = -80 // dBm, inclusive
	rssiMax = -30 // dBm, inclusive
)

// Bounds of the generated readings, for validation by callers and tests.
const (
	TemperatureMin = float64(temperatureMinTenths) / 10
	TemperatureMax = float64(temperatureMaxTenths) / 10
	HumidityMin    = float64(humidityMinTenths) / 10
	HumidityMax    = float64(humidityMaxTenths) / 10
	PressureMin    = float64(pressureMinTenths) / 10
	PressureMax    = float64(pressureMaxTenths) / 10
	RSSIMin        = rssiMin
	RSSIMax        = rssiMax
)

// ReadSensors generates a fresh reading. Nothing is cached between calls.
func (s *Simulator) ReadSensors() SensorReading {
	s.mu.Lock()
	now := s.now()
	reading := SensorReading{
		Temperature: s.tenths(temperatureMinTenths, temperatureMaxTenths),
		Humidity:    s.tenths(humidityMinTenths, humidityMaxTenths),
		Pressure:    s.tenths(pressureMinTenths, pressureMaxTenths),
		Timestamp:   s.sinceBoot(now).Milliseconds(),
	}
	name := s.config.DeviceName
	s.mu.Unlock()

	s.emit(EventSensorReading, name, now, reading)
	return reading
}

// tenths returns a value in [lo, hi) tenths as a float. Must be called
// with s.mu held.
func (s *Simulator) tenths(lo, hi int) float64 {
	return float64(lo+s.rng.IntN(hi-lo)) / 10
}

// Uptime returns the time since the simulated boot.
func (s *Simulator) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinceBoot(s.now())
}
