// internal/data/parser.go
package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrMissingCowID = errors.New("cowId is required")
	ErrNotAnObject  = errors.New("payload must be a JSON object")
)

// Parse decodes one belt payload into a SensorReading.
// Only JSON numbers are accepted for numeric fields; anything else leaves the field nil,
// which the classifier gate later turns into an Unknown result instead of an error.
func Parse(rawData []byte) (*SensorReading, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(rawData, &payload); err != nil {
		return nil, fmt.Errorf("decode reading: %w", err)
	}
	if payload == nil {
		return nil, ErrNotAnObject
	}
	return FromMap(payload)
}

// FromMap builds a SensorReading from an already decoded payload.
func FromMap(payload map[string]interface{}) (*SensorReading, error) {
	reading := &SensorReading{
		CowID:        stringField(payload, "cowId", "cow_id"),
		Temperature:  numberField(payload, "temperature"),
		MotionChange: numberField(payload, "motionChange", "motion_change"),
		Pitch:        numberField(payload, "pitch"),
		Roll:         numberField(payload, "roll"),
		Humidity:     numberField(payload, "humidity"),
		DeviceID:     stringField(payload, "deviceId", "device_id", "sensor_id", "device"),
		BatteryLevel: numberField(payload, "batteryLevel", "battery_level"),
		Timestamp:    time.Now().UTC(),
	}

	if tsStr, ok := payload["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
			reading.Timestamp = t.UTC()
		}
	}

	if reading.CowID == "" {
		return reading, ErrMissingCowID
	}
	return reading, nil
}

func numberField(payload map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		f, numeric := value.(float64)
		if !numeric || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
	return nil
}

func stringField(payload map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			// Some firmware sends numeric cow tags.
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}
