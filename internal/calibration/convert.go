package calibration

// Fallback scales used when a metric has no usable profile.
const (
	defaultOilScale    = 20.0
	defaultWaterScale  = 30.0
	defaultWaterOffset = 50.0
	defaultVoltScale   = 3.0
)

// Convert maps a raw voltage to the metric's physical value. Linear
// profiles extrapolate outside their voltage range; callers must not
// assume the result is clamped.
func Convert(m Metric, raw float64, p Profile) float64 {
	switch p.Kind {
	case KindLinear:
		return p.MinValue + (raw-p.MinVoltage)*(p.MaxValue-p.MinValue)/(p.MaxVoltage-p.MinVoltage)
	case KindVoltageDivider:
		return raw * p.Ratio
	default:
		return fallback(m, raw)
	}
}

func fallback(m Metric, raw float64) float64 {
	switch m {
	case OilPressure:
		return raw * defaultOilScale
	case WaterTemp:
		return raw*defaultWaterScale + defaultWaterOffset
	case Voltage:
		return raw * defaultVoltScale
	default:
		return raw
	}
}
