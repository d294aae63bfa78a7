// Package influxdb writes simulator telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API. Readings land in
// the sensor_readings measurement tagged by device and source; actuator
// levels land in control_outputs.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time series
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("ESP32-Simulator", "api", 24.1, 51.3, 1008.2, time.Now())
//
// Writes are batched per influxdb.batch_size and influxdb.flush_interval;
// batch failures are reported through SetOnError.
package influxdb
