package telemetry

import (
	"math"
	"time"

	"codeberg.org/mutker/infotainctl/internal/calibration"
	"codeberg.org/mutker/infotainctl/internal/errors"
)

const defaultHold = 5 * time.Second

// Config holds the warning thresholds and how long a warning outlives
// its last triggering sample.
type Config struct {
	Thresholds map[calibration.Metric]Threshold
	Hold       time.Duration
}

func bound(v float64) *float64 { return &v }

func DefaultConfig() Config {
	return Config{
		Thresholds: map[calibration.Metric]Threshold{
			calibration.OilPressure: {Min: bound(10), Max: bound(90)},
			calibration.WaterTemp:   {Max: bound(220)},
			calibration.Voltage:     {Min: bound(11.5), Max: bound(15.0)},
		},
		Hold: defaultHold,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Hold < 0 {
		return errFactory.WithData(ErrInvalidHold, c.Hold.String())
	}

	for m, th := range c.Thresholds {
		if _, ok := (Sample{}).Value(m); !ok {
			return errFactory.WithData(ErrUnknownMetric, string(m))
		}
		for _, b := range []*float64{th.Min, th.Max} {
			if b != nil && (math.IsNaN(*b) || math.IsInf(*b, 0)) {
				return errFactory.WithData(ErrInvalidThreshold, string(m))
			}
		}
		if th.Min != nil && th.Max != nil && *th.Min > *th.Max {
			return errFactory.WithData(ErrInvalidThreshold, string(m))
		}
	}

	return nil
}
