package telemetry

import (
	"context"
	"math"

	"codeberg.org/mutker/infotainctl/internal/calibration"
	"codeberg.org/mutker/infotainctl/internal/sensor"
	"codeberg.org/mutker/infotainctl/internal/smoothing"
)

// ADC channel assignment.
const (
	ChannelOilPressure = 0
	ChannelWaterTemp   = 1
	ChannelVoltage     = 2
)

type channelMetric struct {
	channel int
	metric  calibration.Metric
}

var channelMap = []channelMetric{
	{ChannelOilPressure, calibration.OilPressure},
	{ChannelWaterTemp, calibration.WaterTemp},
	{ChannelVoltage, calibration.Voltage},
}

// Aggregator reads every channel, calibrates it and smooths it.
type Aggregator struct {
	source   sensor.Source
	profiles calibration.Profiles
	ema      *smoothing.EMA
}

var _ Snapshotter = (*Aggregator)(nil)

func NewAggregator(source sensor.Source, profiles calibration.Profiles, ema *smoothing.EMA) *Aggregator {
	return &Aggregator{
		source:   source,
		profiles: profiles,
		ema:      ema,
	}
}

// Snapshot takes one reading per metric. Read failures surface as the
// calibration of 0V, never as an error.
func (a *Aggregator) Snapshot(ctx context.Context) Sample {
	values := make(map[calibration.Metric]float64, len(channelMap))

	for _, cm := range channelMap {
		raw := a.source.Voltage(ctx, cm.channel)
		value := calibration.Convert(cm.metric, raw, a.profiles.For(cm.metric))
		values[cm.metric] = round1(a.ema.Apply(string(cm.metric), value))
	}

	return Sample{
		OilPressure: values[calibration.OilPressure],
		WaterTemp:   values[calibration.WaterTemp],
		Voltage:     values[calibration.Voltage],
	}
}

// SourceKind reports which sensor variant backs the aggregator.
func (a *Aggregator) SourceKind() sensor.Kind {
	return a.source.Kind()
}

// Round half away from zero to one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
