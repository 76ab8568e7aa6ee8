// internal/data/models.go
package data

import "time"

// Disease is the coarse health label attached to a reading.
type Disease string

const (
	DiseaseNormal      Disease = "Normal"
	DiseaseFever       Disease = "Fever"
	DiseaseHighFever   Disease = "Heat / High Fever"
	DiseaseHypothermia Disease = "Low Fever / Hypothermia"
	DiseaseStress      Disease = "Stress / Unusual Movement"
	DiseaseUnknown     Disease = "Unknown"
)

// RiskLevel is ordered Low < Medium < High < Critical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Rank returns the position of r in the severity ordering, 0 for unknown values.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// SensorReading is one flat sample as sent by a belt device.
// Numeric fields are pointers so that absent and non-numeric values stay distinguishable from zero.
type SensorReading struct {
	CowID        string    `json:"cowId" bson:"cowId"`
	Temperature  *float64  `json:"temperature" bson:"temperature"`
	MotionChange *float64  `json:"motionChange" bson:"motionChange"`
	Pitch        *float64  `json:"pitch,omitempty" bson:"pitch,omitempty"`
	Roll         *float64  `json:"roll,omitempty" bson:"roll,omitempty"`
	Humidity     *float64  `json:"humidity,omitempty" bson:"humidity,omitempty"`
	DeviceID     string    `json:"deviceId,omitempty" bson:"deviceId,omitempty"`
	BatteryLevel *float64  `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

// DeviceInfo groups the device fields of a stored reading.
type DeviceInfo struct {
	DeviceID     string   `json:"deviceId,omitempty" bson:"deviceId,omitempty"`
	BatteryLevel *float64 `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"`
}

// DataQuality records how trustworthy the derived fields of a reading are.
type DataQuality struct {
	IsValid    bool     `json:"isValid" bson:"isValid"`
	Confidence float64  `json:"confidence" bson:"confidence"`
	Anomalies  []string `json:"anomalies" bson:"anomalies"`
}

// Reading is a persisted SensorReading with the classification folded in.
type Reading struct {
	ID           string      `json:"id" bson:"_id"`
	CowID        string      `json:"cowId" bson:"cowId"`
	Temperature  *float64    `json:"temperature" bson:"temperature"`
	MotionChange *float64    `json:"motionChange" bson:"motionChange"`
	Pitch        *float64    `json:"pitch,omitempty" bson:"pitch,omitempty"`
	Roll         *float64    `json:"roll,omitempty" bson:"roll,omitempty"`
	Humidity     *float64    `json:"humidity,omitempty" bson:"humidity,omitempty"`
	Disease      Disease     `json:"disease" bson:"disease"`
	HealthScore  float64     `json:"healthScore" bson:"healthScore"`
	RiskLevel    RiskLevel   `json:"riskLevel" bson:"riskLevel"`
	DeviceInfo   DeviceInfo  `json:"deviceInfo" bson:"deviceInfo"`
	DataQuality  DataQuality `json:"dataQuality" bson:"dataQuality"`
	Timestamp    time.Time   `json:"timestamp" bson:"timestamp"`
}

// AnomalySeverity is the lower-case severity scale used by the detector.
type AnomalySeverity string

const (
	AnomalyLow      AnomalySeverity = "low"
	AnomalyMedium   AnomalySeverity = "medium"
	AnomalyHigh     AnomalySeverity = "high"
	AnomalyCritical AnomalySeverity = "critical"
)

const (
	AnomalyTemperatureSpike  = "Temperature Spike"
	AnomalyTemperatureDrop   = "Temperature Drop"
	AnomalyMotion            = "Motion Anomaly"
	AnomalyDataInconsistency = "Data Inconsistency"
)

// ValuePair is the value snapshot of a cross-field anomaly.
type ValuePair struct {
	Temperature float64 `json:"temperature" bson:"temperature"`
	Motion      float64 `json:"motion" bson:"motion"`
}

// Anomaly is a single threshold flag raised for one reading.
type Anomaly struct {
	Type     string          `json:"type"`
	Severity AnomalySeverity `json:"severity"`
	Message  string          `json:"message"`
	Value    *float64        `json:"value,omitempty"`
	Values   *ValuePair      `json:"values,omitempty"`
}

// Insight is an informational recommendation derived from a classification.
type Insight struct {
	Category       string `json:"category"`
	Insight        string `json:"insight"`
	Recommendation string `json:"recommendation"`
	Priority       string `json:"priority"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Sensor returns the raw sample a stored reading was built from.
func (r Reading) Sensor() SensorReading {
	return SensorReading{
		CowID:        r.CowID,
		Temperature:  r.Temperature,
		MotionChange: r.MotionChange,
		Pitch:        r.Pitch,
		Roll:         r.Roll,
		Humidity:     r.Humidity,
		DeviceID:     r.DeviceInfo.DeviceID,
		BatteryLevel: r.DeviceInfo.BatteryLevel,
		Timestamp:    r.Timestamp,
	}
}
