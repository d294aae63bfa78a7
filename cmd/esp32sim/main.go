// ESP32 REST Simulator
//
// This is the main entry point of the simulated ESP32 demo board. It serves
// the board's REST surface (status, sensors, control, config, reboot) from
// in-memory state and can mirror every state change to MQTT, InfluxDB and a
// local SQLite history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/devicesim/esp32-rest-sim/migrations"

	"github.com/devicesim/esp32-rest-sim/internal/api"
	"github.com/devicesim/esp32-rest-sim/internal/device"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/database"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/influxdb"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/logging"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/mqtt"
	"github.com/devicesim/esp32-rest-sim/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often expired history is deleted.
const pruneInterval = 10 * time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled and returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Startup wiring: each optional service adds a branch
	log := logging.Default()
	log.Info("starting ESP32 simulator",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	sim := device.NewSimulator(cfg.Device, device.WithLogger(log))
	defer sim.Close()
	status := sim.Status()
	log.Info("device booted",
		"device", status.Device,
		"chip_id", status.ChipID,
		"ip_address", status.IPAddress,
	)

	// Services reported by GET /api/health
	checks := make(map[string]api.HealthChecker)

	// History (optional)
	var history device.History
	if cfg.Database.Enabled {
		db, openErr := database.Open(ctx, cfg.Database)
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", db.Path())

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		history = device.NewSQLiteHistory(db.DB)
		checks["database"] = db
	} else {
		log.Info("history disabled")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Device.Name)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topics", mqttClient.Topics().All(),
		)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event fan-out to MQTT, InfluxDB and history. The API server feeds
	// its own websocket hub.
	pipeline := telemetry.New(telemetryConfig(history, mqttClient, influxClient, log))
	pipeline.Start(ctx)
	defer func() {
		pipeline.Stop()
		stats := pipeline.Stats()
		log.Info("telemetry stopped",
			"processed", stats.Processed,
			"dropped", stats.Dropped,
			"failed", stats.Failed,
		)
	}()
	sim.Subscribe(pipeline.HandleEvent)

	if mqttClient != nil {
		topic := mqttClient.Topics().Command()
		if subErr := telemetry.SubscribeCommands(mqttClient, topic, byte(cfg.MQTT.QoS), sim, log); subErr != nil {
			return subErr
		}
		log.Info("listening for MQTT commands", "topic", topic)
	}

	if history != nil || mqttClient != nil || influxClient != nil {
		go telemetry.RunSampler(ctx, sim, log)
		log.Info("sensor sampler started", "interval_ms", sim.Config().SensorInterval)
	}

	if history != nil && cfg.Database.Retention() > 0 {
		go telemetry.RunPruner(ctx, history, cfg.Database.Retention(), pruneInterval, log)
	}

	// HTTP API
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Simulator:    sim,
		History:      history,
		RebootDelay:  cfg.Device.RebootDelay,
		Version:      version,
		HealthChecks: checks,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("ESP32 simulator ready",
		"address", cfg.API.Addr(),
		"auth", cfg.Security.APIToken.Secret != "",
	)

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// telemetryConfig assembles the pipeline sinks. Disabled services stay nil
// interfaces rather than typed nil pointers.
func telemetryConfig(history device.History, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) telemetry.Config {
	tcfg := telemetry.Config{
		History: history,
		Logger:  log,
	}
	if mqttClient != nil {
		tcfg.MQTT = mqttClient
		tcfg.Topics = mqttClient.Topics()
	}
	if influxClient != nil {
		tcfg.Points = influxClient
	}
	return tcfg
}

// getConfigPath returns the config file path from the ESP32SIM_CONFIG
// environment variable, or the default.
func getConfigPath() string {
	if path := os.Getenv("ESP32SIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
