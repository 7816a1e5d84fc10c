// Package calibration converts raw sensor voltages into physical values.
package calibration

import (
	"fmt"
	"math"

	"codeberg.org/mutker/infotainctl/internal/errors"
)

// Metric names one telemetry channel.
type Metric string

const (
	OilPressure Metric = "oil_pressure"
	WaterTemp   Metric = "water_temp"
	Voltage     Metric = "voltage"
)

// Metrics lists the channels in ADC channel order.
var Metrics = []Metric{OilPressure, WaterTemp, Voltage}

// Kind tags the variant held by a Profile.
type Kind int

const (
	KindDefault Kind = iota
	KindLinear
	KindVoltageDivider
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindVoltageDivider:
		return "voltage_divider"
	default:
		return "default"
	}
}

// Profile maps a raw voltage to a physical value. Only the fields of the
// tagged Kind are meaningful.
type Profile struct {
	Kind Kind

	// Linear
	MinVoltage float64
	MaxVoltage float64
	MinValue   float64
	MaxValue   float64

	// VoltageDivider
	Ratio float64
}

// Linear returns a linear interpolation profile.
func Linear(minVoltage, maxVoltage, minValue, maxValue float64) Profile {
	return Profile{
		Kind:       KindLinear,
		MinVoltage: minVoltage,
		MaxVoltage: maxVoltage,
		MinValue:   minValue,
		MaxValue:   maxValue,
	}
}

// VoltageDivider returns a profile that scales the input by ratio.
func VoltageDivider(ratio float64) Profile {
	return Profile{Kind: KindVoltageDivider, Ratio: ratio}
}

// Default returns the per-metric fallback profile.
func Default() Profile {
	return Profile{Kind: KindDefault}
}

// Validate rejects profiles that would produce non-finite output.
func (p Profile) Validate() error {
	errFactory := errors.New()

	switch p.Kind {
	case KindLinear:
		for _, v := range []float64{p.MinVoltage, p.MaxVoltage, p.MinValue, p.MaxValue} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errFactory.WithData(errors.ErrInvalidCalibration, "linear parameters must be finite")
			}
		}
		if p.MaxVoltage == p.MinVoltage {
			return errFactory.WithData(errors.ErrInvalidCalibration,
				fmt.Sprintf("max_voltage equals min_voltage (%g)", p.MinVoltage))
		}
	case KindVoltageDivider:
		if math.IsNaN(p.Ratio) || math.IsInf(p.Ratio, 0) {
			return errFactory.WithData(errors.ErrInvalidCalibration, "divider_ratio must be finite")
		}
	}

	return nil
}

func (p Profile) String() string {
	switch p.Kind {
	case KindLinear:
		return fmt.Sprintf("linear[%gV..%gV -> %g..%g]", p.MinVoltage, p.MaxVoltage, p.MinValue, p.MaxValue)
	case KindVoltageDivider:
		return fmt.Sprintf("voltage_divider[x%g]", p.Ratio)
	default:
		return "default"
	}
}

// Profiles holds one profile per metric. Missing metrics use Default.
type Profiles map[Metric]Profile

// For returns the profile configured for m.
func (ps Profiles) For(m Metric) Profile {
	if p, ok := ps[m]; ok {
		return p
	}
	return Default()
}

// Validate checks every configured profile and names the failing metric.
func (ps Profiles) Validate() error {
	for _, m := range Metrics {
		p, ok := ps[m]
		if !ok {
			continue
		}
		if err := p.Validate(); err != nil {
			return errors.New().
				WithData(errors.ErrInvalidCalibration, fmt.Sprintf("%s: %v", m, err))
		}
	}
	return nil
}

// RawProfile is the configuration-file shape of a profile.
type RawProfile struct {
	Type         string   `mapstructure:"type" json:"type,omitempty"`
	MinVoltage   *float64 `mapstructure:"min_voltage" json:"min_voltage,omitempty"`
	MaxVoltage   *float64 `mapstructure:"max_voltage" json:"max_voltage,omitempty"`
	MinValue     *float64 `mapstructure:"min_value" json:"min_value,omitempty"`
	MaxValue     *float64 `mapstructure:"max_value" json:"max_value,omitempty"`
	DividerRatio *float64 `mapstructure:"divider_ratio" json:"divider_ratio,omitempty"`
}

const defaultDividerRatio = 3.0

// linearDefaults are used for parameters a linear profile leaves out.
var linearDefaults = map[Metric][2]float64{
	OilPressure: {0, 100},
	WaterTemp:   {50, 200},
	Voltage:     {0, 100},
}

// ParseProfiles builds validated Profiles from configuration. Unknown or
// absent types fall back to Default.
func ParseProfiles(raw map[string]RawProfile) (Profiles, error) {
	ps := make(Profiles, len(Metrics))

	for _, m := range Metrics {
		r, ok := raw[string(m)]
		if !ok {
			ps[m] = Default()
			continue
		}
		ps[m] = r.profile(m)
	}

	if err := ps.Validate(); err != nil {
		return nil, err
	}

	return ps, nil
}

func (r RawProfile) profile(m Metric) Profile {
	switch r.Type {
	case "linear":
		d := linearDefaults[m]
		return Linear(
			valueOr(r.MinVoltage, 0.0),
			valueOr(r.MaxVoltage, 5.0),
			valueOr(r.MinValue, d[0]),
			valueOr(r.MaxValue, d[1]),
		)
	case "voltage_divider":
		return VoltageDivider(valueOr(r.DividerRatio, defaultDividerRatio))
	default:
		return Default()
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
