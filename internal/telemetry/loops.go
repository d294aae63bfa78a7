package telemetry

import (
	"context"
	"time"

	"github.com/devicesim/esp32-rest-sim/internal/device"
)

// MinSampleInterval keeps a tiny sensor_interval from spinning the sampler.
const MinSampleInterval = 100 * time.Millisecond

// SensorSource is read by the sampler. *device.Simulator satisfies it.
type SensorSource interface {
	ReadSensors() device.SensorReading
	Config() device.Config
}

// RunSampler reads the sensors every sensor_interval milliseconds until ctx
// is cancelled, so subscribers see readings without anyone polling
// /api/sensors. The interval is re-read after each sample and takes effect
// on the next one.
func RunSampler(ctx context.Context, src SensorSource, logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}

	timer := time.NewTimer(sampleInterval(src))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r := src.ReadSensors()
			logger.Debug("sensor sample", "temperature", r.Temperature, "humidity", r.Humidity, "pressure", r.Pressure)
			timer.Reset(sampleInterval(src))
		}
	}
}

func sampleInterval(src SensorSource) time.Duration {
	d := time.Duration(src.Config().SensorInterval) * time.Millisecond
	if d < MinSampleInterval {
		return MinSampleInterval
	}
	return d
}

// RunPruner deletes history older than retention once immediately and
// then every interval until ctx is cancelled.
func RunPruner(ctx context.Context, history device.History, retention, interval time.Duration, logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}

	prune := func() {
		pruneCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		defer cancel()
		deleted, err := history.Prune(pruneCtx, retention)
		if err != nil {
			logger.Error("history prune failed", "error", err)
			return
		}
		if deleted > 0 {
			logger.Debug("history pruned", "deleted", deleted, "retention", retention)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prune()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
