// Package telemetry turns raw channel voltages into smoothed engine
// readings and tracks threshold warnings over them.
package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/infotainctl/internal/calibration"
	"codeberg.org/mutker/infotainctl/internal/ups"
)

// Sample is one calibrated, smoothed reading of every engine metric,
// rounded to one decimal.
type Sample struct {
	OilPressure float64 `json:"oil_pressure"`
	WaterTemp   float64 `json:"water_temp"`
	Voltage     float64 `json:"voltage"`
}

// Value returns the reading for m.
func (s Sample) Value(m calibration.Metric) (float64, bool) {
	switch m {
	case calibration.OilPressure:
		return s.OilPressure, true
	case calibration.WaterTemp:
		return s.WaterTemp, true
	case calibration.Voltage:
		return s.Voltage, true
	default:
		return 0, false
	}
}

// Snapshotter produces samples on demand. Snapshot never fails.
type Snapshotter interface {
	Snapshot(ctx context.Context) Sample
}

// Threshold bounds one metric. A nil bound is not checked.
type Threshold struct {
	Min *float64 `mapstructure:"min" json:"min,omitempty"`
	Max *float64 `mapstructure:"max" json:"max,omitempty"`
}

// Level says which bound a warning crossed.
type Level string

const (
	LevelLow  Level = "low"
	LevelHigh Level = "high"
)

// Warning is an active threshold violation.
type Warning struct {
	Metric    calibration.Metric `json:"metric"`
	Level     Level              `json:"level"`
	Value     float64            `json:"value"`
	Since     time.Time          `json:"since"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// UPSStatus is the UPS part of a Frame.
type UPSStatus = ups.StatusReport

// Frame is the payload relayed to clients: the sample, plus the UPS
// status when the UPS is reporting.
type Frame struct {
	Sample
	UPS *UPSStatus `json:"ups,omitempty"`
}

// NewFrame attaches status to s only when the UPS is available.
func NewFrame(s Sample, status UPSStatus) Frame {
	f := Frame{Sample: s}
	if status.Available {
		f.UPS = &status
	}
	return f
}
