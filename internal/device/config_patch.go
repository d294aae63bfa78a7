package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Config field names as they appear on the wire.
const (
	fieldSensorInterval = "sensor_interval"
	fieldLEDEnabled     = "led_enabled"
	fieldDeviceName     = "device_name"
	fieldVersion        = "version"
)

// ParseConfigPatch decodes a config update body.
//
// The body must be a JSON object. Known fields are coerced to their types:
// sensor_interval accepts a number or numeric string (fractions are
// truncated), led_enabled accepts a boolean, "true"/"false" or 0/1, and
// device_name/version accept a string or a number. Unknown fields and
// null values are ignored.
func ParseConfigPatch(body []byte) (ConfigPatch, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return ConfigPatch{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if raw == nil {
		return ConfigPatch{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidConfig)
	}

	var patch ConfigPatch
	for key, value := range raw {
		if isNull(value) {
			continue
		}

		var err error
		switch key {
		case fieldSensorInterval:
			var n int
			if n, err = coerceInt(value); err == nil {
				patch.SensorInterval = &n
			}
		case fieldLEDEnabled:
			var b bool
			if b, err = coerceBool(value); err == nil {
				patch.LEDEnabled = &b
			}
		case fieldDeviceName:
			var str string
			if str, err = coerceString(value); err == nil {
				patch.DeviceName = &str
			}
		case fieldVersion:
			var str string
			if str, err = coerceString(value); err == nil {
				patch.Version = &str
			}
		}
		if err != nil {
			return ConfigPatch{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
	}
	return patch, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func coerceInt(v json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return 0, fmt.Errorf("expected a number")
		}
		n = json.Number(strings.TrimSpace(s))
	}

	if i, err := n.Int64(); err == nil {
		return clampInt(float64(i))
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", n.String())
	}
	return clampInt(math.Trunc(f))
}

func clampInt(f float64) (int, error) {
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("number out of range")
	}
	return int(f), nil
}

func coerceBool(v json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, nil
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		switch n.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return false, fmt.Errorf("expected 0 or 1, got %s", n.String())
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return false, fmt.Errorf("expected a boolean")
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("expected a boolean, got %q", s)
	}
	return b, nil
}

func coerceString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("expected a string")
}
