// internal/anomaly/detector.go
package anomaly

import (
	"log/slog"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

// Thresholds are the bounds each detector rule compares against.
type Thresholds struct {
	SpikeCritical float64 `mapstructure:"spike_critical"`
	DropCritical  float64 `mapstructure:"drop_critical"`
	SpikeElevated float64 `mapstructure:"spike_elevated"`

	MotionExcessive float64 `mapstructure:"motion_excessive"`
	MotionLethargic float64 `mapstructure:"motion_lethargic"`
	MotionUnusual   float64 `mapstructure:"motion_unusual"`

	IllnessTemperature float64 `mapstructure:"illness_temperature"`
	IllnessMotion      float64 `mapstructure:"illness_motion"`
	StressTemperature  float64 `mapstructure:"stress_temperature"`
	StressMotion       float64 `mapstructure:"stress_motion"`
	ExtremeTemperature float64 `mapstructure:"extreme_temperature"`
	ExtremeMotion      float64 `mapstructure:"extreme_motion"`
}

// DefaultThresholds returns the stock rule bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpikeCritical: 41.0,
		DropCritical:  35.0,
		SpikeElevated: 39.5,

		MotionExcessive: 250,
		MotionLethargic: 3,
		MotionUnusual:   150,

		IllnessTemperature: 39.0,
		IllnessMotion:      10,
		StressTemperature:  37.0,
		StressMotion:       100,
		ExtremeTemperature: 40.0,
		ExtremeMotion:      200,
	}
}

type Detector struct {
	thresholds Thresholds
}

func NewDetector(t Thresholds) *Detector {
	return &Detector{thresholds: t}
}

// Check scans one reading. Every matching rule fires; rules whose inputs are
// missing are skipped. The result is never nil.
func (d *Detector) Check(r data.SensorReading) []data.Anomaly {
	anomalies := []data.Anomaly{}

	if r.Temperature != nil {
		anomalies = append(anomalies, d.temperature(*r.Temperature)...)
	}
	if r.MotionChange != nil {
		anomalies = append(anomalies, d.motion(*r.MotionChange)...)
	}
	if r.Temperature != nil && r.MotionChange != nil {
		anomalies = append(anomalies, d.combined(*r.Temperature, *r.MotionChange)...)
	}

	for _, a := range anomalies {
		if a.Severity == data.AnomalyHigh || a.Severity == data.AnomalyCritical {
			slog.Debug("anomaly detected", slog.String("cowId", r.CowID), slog.String("type", a.Type),
				slog.String("severity", string(a.Severity)))
		}
	}
	return anomalies
}

func (d *Detector) temperature(t float64) []data.Anomaly {
	var out []data.Anomaly
	th := d.thresholds

	if t > th.SpikeCritical {
		out = append(out, single(data.AnomalyTemperatureSpike, data.AnomalyCritical, "Critical temperature spike detected", t))
	}
	if t < th.DropCritical {
		out = append(out, single(data.AnomalyTemperatureDrop, data.AnomalyCritical, "Critical temperature drop detected", t))
	}
	// Elevated only when the critical spike did not fire.
	if t > th.SpikeElevated && t <= th.SpikeCritical {
		out = append(out, single(data.AnomalyTemperatureSpike, data.AnomalyMedium, "Elevated temperature detected", t))
	}
	return out
}

func (d *Detector) motion(m float64) []data.Anomaly {
	var out []data.Anomaly
	th := d.thresholds

	if m >= th.MotionExcessive {
		out = append(out, single(data.AnomalyMotion, data.AnomalyHigh, "Excessive activity detected", m))
	}
	if m < th.MotionLethargic {
		out = append(out, single(data.AnomalyMotion, data.AnomalyHigh, "Lethargy detected", m))
	}
	// Shares the excessive boundary, so exactly MotionExcessive raises both.
	if m > th.MotionUnusual && m <= th.MotionExcessive {
		out = append(out, single(data.AnomalyMotion, data.AnomalyMedium, "Unusual activity pattern detected", m))
	}
	return out
}

func (d *Detector) combined(t, m float64) []data.Anomaly {
	var out []data.Anomaly
	th := d.thresholds

	if t > th.IllnessTemperature && m < th.IllnessMotion {
		out = append(out, pair(data.AnomalyHigh, "Potential illness: High temperature with low activity", t, m))
	}
	if t < th.StressTemperature && m > th.StressMotion {
		out = append(out, pair(data.AnomalyMedium, "Potential stress: Low temperature with high activity", t, m))
	}
	if t > th.ExtremeTemperature && m > th.ExtremeMotion {
		out = append(out, pair(data.AnomalyCritical, "Critical condition: Extreme temperature and activity", t, m))
	}
	return out
}

func single(kind string, severity data.AnomalySeverity, message string, v float64) data.Anomaly {
	return data.Anomaly{Type: kind, Severity: severity, Message: message, Value: data.Float(v)}
}

func pair(severity data.AnomalySeverity, message string, t, m float64) data.Anomaly {
	return data.Anomaly{
		Type:     data.AnomalyDataInconsistency,
		Severity: severity,
		Message:  message,
		Values:   &data.ValuePair{Temperature: t, Motion: m},
	}
}

// Types returns the type of each anomaly, in order.
func Types(anomalies []data.Anomaly) []string {
	types := make([]string, len(anomalies))
	for i, a := range anomalies {
		types[i] = a.Type
	}
	return types
}
