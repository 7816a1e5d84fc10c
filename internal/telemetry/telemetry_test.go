package telemetry_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"codeberg.org/mutker/infotainctl/internal/calibration"
	"codeberg.org/mutker/infotainctl/internal/sensor"
	"codeberg.org/mutker/infotainctl/internal/smoothing"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	"codeberg.org/mutker/infotainctl/internal/ups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	mu    sync.Mutex
	volts map[int]float64
	reads []int
}

func (s *fixedSource) Voltage(_ context.Context, channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, channel)
	return s.volts[channel]
}

func (s *fixedSource) set(channel int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volts[channel] = v
}

func (*fixedSource) Kind() sensor.Kind { return sensor.KindHardware }
func (*fixedSource) Close() error      { return nil }

func newAggregator(t *testing.T, src sensor.Source, alpha float64, profiles calibration.Profiles) *telemetry.Aggregator {
	t.Helper()
	ema, err := smoothing.New(alpha)
	require.NoError(t, err)
	return telemetry.NewAggregator(src, profiles, ema)
}

func TestSnapshotDefaultProfiles(t *testing.T) {
	src := &fixedSource{volts: map[int]float64{0: 2.0, 1: 1.0, 2: 4.2}}
	agg := newAggregator(t, src, 1, nil)

	s := agg.Snapshot(context.Background())
	assert.Equal(t, telemetry.Sample{OilPressure: 40, WaterTemp: 80, Voltage: 12.6}, s)
	assert.Equal(t, []int{0, 1, 2}, src.reads)
	assert.Equal(t, sensor.KindHardware, agg.SourceKind())
}

func TestSnapshotFailedReadsUseZeroVolts(t *testing.T) {
	src := &fixedSource{volts: map[int]float64{}}
	agg := newAggregator(t, src, smoothing.DefaultAlpha, nil)

	s := agg.Snapshot(context.Background())
	assert.Equal(t, telemetry.Sample{OilPressure: 0, WaterTemp: 50, Voltage: 0}, s)
}

func TestSnapshotLinearProfile(t *testing.T) {
	src := &fixedSource{volts: map[int]float64{0: 2.5, 1: 0, 2: 0}}
	profiles := calibration.Profiles{
		calibration.OilPressure: calibration.Linear(0.5, 4.5, 0, 100),
	}
	agg := newAggregator(t, src, 1, profiles)

	assert.Equal(t, 50.0, agg.Snapshot(context.Background()).OilPressure)
}

func TestSnapshotSmoothsAcrossCalls(t *testing.T) {
	src := &fixedSource{volts: map[int]float64{0: 1.0, 1: 0, 2: 0}}
	agg := newAggregator(t, src, 0.5, nil)

	assert.Equal(t, 20.0, agg.Snapshot(context.Background()).OilPressure)

	src.set(0, 2.0)
	assert.Equal(t, 30.0, agg.Snapshot(context.Background()).OilPressure)
	assert.Equal(t, 35.0, agg.Snapshot(context.Background()).OilPressure)
}

func TestSnapshotRoundsToOneDecimal(t *testing.T) {
	src := &fixedSource{volts: map[int]float64{0: 0.123, 1: 0.3333, 2: 4.18}}
	agg := newAggregator(t, src, 1, nil)

	s := agg.Snapshot(context.Background())
	assert.Equal(t, 2.5, s.OilPressure)
	assert.Equal(t, 60.0, s.WaterTemp)
	assert.Equal(t, 12.5, s.Voltage)
}

func TestSampleValue(t *testing.T) {
	s := telemetry.Sample{OilPressure: 1, WaterTemp: 2, Voltage: 3}
	for m, want := range map[calibration.Metric]float64{
		calibration.OilPressure: 1,
		calibration.WaterTemp:   2,
		calibration.Voltage:     3,
	} {
		got, ok := s.Value(m)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := s.Value("boost")
	assert.False(t, ok)
}

func TestNewFrameIncludesAvailableUPS(t *testing.T) {
	s := telemetry.Sample{OilPressure: 40, WaterTemp: 90, Voltage: 13.5}

	f := telemetry.NewFrame(s, ups.StatusReport{Available: false})
	assert.Nil(t, f.UPS)
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"oil_pressure":40,"water_temp":90,"voltage":13.5}`, string(b))

	vin := 5.1
	f = telemetry.NewFrame(s, ups.StatusReport{Available: true, InputVoltage: &vin})
	require.NotNil(t, f.UPS)
	b, err = json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"oil_pressure":40,"water_temp":90,"voltage":13.5,"ups":{"available":true,"input_voltage":5.1}}`, string(b))
}
