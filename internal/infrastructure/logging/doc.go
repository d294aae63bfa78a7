// Package logging provides structured logging for the ESP32 simulator.
//
// It wraps log/slog so both binaries log the same way:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting server", "addr", ":8080")
//	logger.Error("publish failed", "error", err)
//
// Never log secrets such as MQTT passwords or API token secrets.
package logging
