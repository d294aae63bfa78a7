// dweet.io reporter
//
// Sends a random temperature to dweet.io on a fixed interval, as the ESP32
// demo sketch does, and logs the service's answer. Values can
// be mirrored to MQTT and InfluxDB when those services are configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/influxdb"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/logging"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/mqtt"
	"github.com/devicesim/esp32-rest-sim/internal/reporter"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// mqttClientSuffix keeps the reporter's broker session apart from the
// simulator's when both share one config file.
const mqttClientSuffix = "-dweet"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting dweet reporter",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)

	opts := []reporter.Option{reporter.WithLogger(log)}

	if cfg.MQTT.Enabled {
		mqttCfg := cfg.MQTT
		mqttCfg.Broker.ClientID += mqttClientSuffix
		client, connErr := mqtt.Connect(mqttCfg, cfg.Reporter.ThingName)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		client.SetLogger(log)
		opts = append(opts, reporter.WithSink(reporter.MQTTSink{
			Client: client,
			Topic:  client.Topics().Sensors(),
		}))
		log.Info("MQTT connected", "topic", client.Topics().Sensors())
	}

	if cfg.InfluxDB.Enabled {
		influx, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		opts = append(opts, reporter.WithSink(reporter.InfluxSink{Writer: influx}))
		log.Info("InfluxDB connected", "bucket", cfg.InfluxDB.Bucket)
	}

	rep, err := reporter.New(cfg.Reporter, opts...)
	if err != nil {
		return err
	}

	log.Info("reporting to dweet.io",
		"url", reporter.BaseURL(cfg.Reporter),
		"thing", cfg.Reporter.ThingName,
		"interval", cfg.Reporter.Interval,
	)
	if err := rep.Run(ctx); err != nil {
		return err
	}
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath returns the config file path from the ESP32SIM_CONFIG
// environment variable, or the default.
func getConfigPath() string {
	if path := os.Getenv("ESP32SIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
