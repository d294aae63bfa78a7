package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
)

// dweetPath is the dweet.io publish route; {thing} is path-escaped by resty.
const dweetPath = "/dweet/for/{thing}"

// Logger defines the logging interface used by the Reporter.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DweetResponse is the JSON envelope dweet.io answers with.
type DweetResponse struct {
	This string `json:"this"`
	By   string `json:"by"`
	The  string `json:"the"`
	With struct {
		Thing   string         `json:"thing"`
		Created string         `json:"created"`
		Content map[string]any `json:"content"`
	} `json:"with"`
}

// Result is the outcome of one report.
type Result struct {
	Value      int
	URL        string
	StatusCode int
	Body       string
	Succeeded  bool // dweet.io answered "this": "succeeded"
}

// Reporter periodically sends a fake temperature to dweet.io.
//
// Each report is one GET /dweet/for/<thing>?temperature=<n> with n drawn
// from [MinValue, MaxValue). Failures are logged; there is no retry or
// backoff, the next report simply happens after the interval.
type Reporter struct {
	cfg    config.ReporterConfig
	client *resty.Client
	rng    *rand.Rand
	now    func() time.Time
	sinks  []Sink
	logger Logger
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithRand seeds the value generator.
func WithRand(r *rand.Rand) Option {
	return func(rep *Reporter) { rep.rng = r }
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(rep *Reporter) { rep.logger = logger }
}

// WithSink adds a sink that receives every generated value.
func WithSink(s Sink) Option {
	return func(rep *Reporter) { rep.sinks = append(rep.sinks, s) }
}

// New creates a reporter for cfg.
func New(cfg config.ReporterConfig, opts ...Option) (*Reporter, error) {
	if cfg.Server == "" || cfg.ThingName == "" {
		return nil, ErrInvalidConfig
	}
	if cfg.MaxValue <= cfg.MinValue {
		return nil, fmt.Errorf("%w: max_value %d must exceed min_value %d", ErrInvalidConfig, cfg.MaxValue, cfg.MinValue)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}

	client := resty.New().
		SetBaseURL(BaseURL(cfg)).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "esp32sim-dweetreporter")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	r := &Reporter{
		cfg:    cfg,
		client: client,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // Fake readings
		now:    time.Now,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// BaseURL returns the http://host:port the reporter talks to.
func BaseURL(cfg config.ReporterConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 80
	}
	return "http://" + net.JoinHostPort(cfg.Server, strconv.Itoa(port))
}

// NextValue draws the next fake temperature.
func (r *Reporter) NextValue() int {
	return r.cfg.MinValue + r.rng.IntN(r.cfg.MaxValue-r.cfg.MinValue)
}

// Run reports once per interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	r.logger.Info("dweet reporter started",
		"url", BaseURL(r.cfg),
		"thing", r.cfg.ThingName,
		"interval", r.cfg.Interval,
	)

	for {
		if _, err := r.Report(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("dweet report failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("dweet reporter stopped")
			return nil
		case <-time.After(r.cfg.Interval):
		}
	}
}

// Report generates one value, sends it to dweet.io and hands it to the sinks.
// A non-2xx answer is returned as a Result, not an error.
func (r *Reporter) Report(ctx context.Context) (Result, error) {
	value := r.NextValue()
	at := r.now()

	r.notifySinks(ctx, value, at)

	r.logger.Info("sending data to dweet.io", "thing", r.cfg.ThingName, "temperature", value)

	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("thing", r.cfg.ThingName).
		SetQueryParam("temperature", strconv.Itoa(value)).
		Get(dweetPath)
	if err != nil {
		return Result{Value: value}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	result := Result{
		Value:      value,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}

	// The body is logged as-is; an undecodable one only means no success flag.
	var dweet DweetResponse
	if resp.IsSuccess() && json.Unmarshal(resp.Body(), &dweet) == nil {
		result.Succeeded = dweet.This == "succeeded"
	}

	log := r.logger.Info
	if !resp.IsSuccess() {
		log = r.logger.Warn
	}
	log("dweet.io response",
		"status_code", result.StatusCode,
		"response", result.Body,
		"succeeded", result.Succeeded,
	)

	return result, nil
}

func (r *Reporter) notifySinks(ctx context.Context, value int, at time.Time) {
	for _, s := range r.sinks {
		if err := s.RecordTemperature(ctx, r.cfg.ThingName, value, at); err != nil {
			r.logger.Warn("reporter sink failed", "error", err)
		}
	}
}
