package relay_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/relay"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	"codeberg.org/mutker/infotainctl/internal/ups"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

var _ mqtt.Token = doneToken{}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, message{topic, qos, retained, payload.([]byte)})
	return doneToken{err: p.err}
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type staticTelemetry struct{ sample telemetry.Sample }

func (s staticTelemetry) Snapshot(context.Context) telemetry.Sample { return s.sample }

func testConfig() relay.Config {
	return relay.Config{Topic: "infotainment/telemetry", Interval: time.Millisecond}
}

func TestPublishOnce(t *testing.T) {
	pub := &fakePublisher{}
	store := ups.NewStore(ups.ModeHardware, logger.Nop())
	tracker, err := telemetry.NewWarningTracker(telemetry.DefaultConfig())
	require.NoError(t, err)

	r, err := relay.New(testConfig(), pub,
		staticTelemetry{sample: telemetry.Sample{OilPressure: 5, WaterTemp: 190, Voltage: 13.8}},
		store, tracker, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, r.PublishOnce(context.Background()))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "infotainment/telemetry", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.False(t, msg.retained)

	var frame telemetry.Frame
	require.NoError(t, json.Unmarshal(msg.payload, &frame))
	assert.Equal(t, 5.0, frame.OilPressure)
	require.NotNil(t, frame.UPS)
	assert.True(t, frame.UPS.Available)

	assert.Len(t, tracker.Active(), 1)
}

func TestPublishOmitsUnavailableUPS(t *testing.T) {
	pub := &fakePublisher{}
	r, err := relay.New(testConfig(), pub, staticTelemetry{}, ups.NewStore(ups.ModeSynthetic, logger.Nop()), nil, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, r.PublishOnce(context.Background()))
	assert.NotContains(t, string(pub.msgs[0].payload), "ups")
}

func TestPublishError(t *testing.T) {
	pub := &fakePublisher{err: stderrors.New("not connected")}
	r, err := relay.New(testConfig(), pub, staticTelemetry{}, ups.NewStore(ups.ModeSynthetic, logger.Nop()), nil, logger.Nop())
	require.NoError(t, err)

	err = r.PublishOnce(context.Background())
	assert.True(t, errors.HasCode(err, relay.ErrPublish))
}

func TestRunKeepsPublishingAfterErrors(t *testing.T) {
	pub := &fakePublisher{err: stderrors.New("not connected")}
	r, err := relay.New(testConfig(), pub, staticTelemetry{}, ups.NewStore(ups.ModeSynthetic, logger.Nop()), nil, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	cfg.Topic = ""
	assert.True(t, errors.HasCode(cfg.Validate(), errors.ErrInvalidConfig))

	cfg = testConfig()
	cfg.Interval = 0
	_, err := relay.New(cfg, &fakePublisher{}, staticTelemetry{}, nil, nil, logger.Nop())
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
}
