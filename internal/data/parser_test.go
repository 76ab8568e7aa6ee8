package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullPayload(t *testing.T) {
	raw := []byte(`{"cowId":"C1","temperature":38.6,"motionChange":42,"pitch":-3.5,"roll":12,
		"humidity":55,"deviceId":"belt-07","batteryLevel":81,"timestamp":"2026-05-02T08:30:00Z"}`)

	r, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "C1", r.CowID)
	require.NotNil(t, r.Temperature)
	assert.Equal(t, 38.6, *r.Temperature)
	assert.Equal(t, 42.0, *r.MotionChange)
	assert.Equal(t, -3.5, *r.Pitch)
	assert.Equal(t, 12.0, *r.Roll)
	assert.Equal(t, 55.0, *r.Humidity)
	assert.Equal(t, "belt-07", r.DeviceID)
	assert.Equal(t, 81.0, *r.BatteryLevel)
	assert.Equal(t, time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC), r.Timestamp)
}

func TestParseKeepsNonNumericAsNil(t *testing.T) {
	r, err := Parse([]byte(`{"cowId":"C2","temperature":"hot","motionChange":10}`))
	require.NoError(t, err)
	assert.Nil(t, r.Temperature)
	assert.Nil(t, r.Pitch)
	require.NotNil(t, r.MotionChange)
}

func TestParseDeviceAliases(t *testing.T) {
	r, err := Parse([]byte(`{"cowId":17,"temperature":38,"motionChange":10,"sensor_id":"esp-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "17", r.CowID)
	assert.Equal(t, "esp-1", r.DeviceID)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`null`))
	assert.ErrorIs(t, err, ErrNotAnObject)

	r, err := Parse([]byte(`{"temperature":38}`))
	assert.ErrorIs(t, err, ErrMissingCowID)
	assert.NotNil(t, r)
}
