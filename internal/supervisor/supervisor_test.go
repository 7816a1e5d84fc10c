package supervisor_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/supervisor"
	"codeberg.org/mutker/infotainctl/internal/ups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUPS struct {
	mu    sync.Mutex
	state ups.State
}

func (f *fakeUPS) Snapshot() ups.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeUPS) set(available bool, vin float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = ups.State{Available: available, InputVoltage: vin, Capacity: 80}
}

type countingShutdowner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingShutdowner) Shutdown(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingShutdowner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memoryRecorder struct {
	events []supervisor.Event
	err    error
}

func (m *memoryRecorder) Record(_ context.Context, ev supervisor.Event) error {
	m.events = append(m.events, ev)
	return m.err
}

func (m *memoryRecorder) kinds() []supervisor.EventKind {
	out := make([]supervisor.EventKind, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newSupervisor(t *testing.T, opts ...supervisor.Option) (*supervisor.Supervisor, *fakeUPS, *countingShutdowner) {
	t.Helper()
	state := &fakeUPS{}
	state.set(true, 5.0)
	sd := &countingShutdowner{}
	s, err := supervisor.New(supervisor.DefaultConfig(), state, sd, logger.Nop(), opts...)
	require.NoError(t, err)
	return s, state, sd
}

func TestSixtyLowTicksFireOnce(t *testing.T) {
	s, state, sd := newSupervisor(t)
	ctx := context.Background()
	state.set(true, 3.0)

	for i := 1; i < 60; i++ {
		assert.Equal(t, supervisor.PhaseOnBattery, s.Tick(ctx), "tick %d", i)
	}
	assert.Equal(t, 0, sd.count())

	assert.Equal(t, supervisor.PhaseShutdownRequested, s.Tick(ctx))
	assert.Equal(t, 1, sd.count())

	phase, counter := s.Status()
	assert.Equal(t, supervisor.PhaseOnBattery, phase)
	assert.Equal(t, 0, counter)
}

func TestRefiresAfterAnotherFullLimit(t *testing.T) {
	s, state, sd := newSupervisor(t)
	ctx := context.Background()
	state.set(true, 0)

	for i := 0; i < 119; i++ {
		s.Tick(ctx)
	}
	assert.Equal(t, 1, sd.count())

	s.Tick(ctx)
	assert.Equal(t, 2, sd.count())
}

func TestRestoreResetsCountdown(t *testing.T) {
	s, state, sd := newSupervisor(t)
	ctx := context.Background()

	state.set(true, 3.0)
	for i := 0; i < 30; i++ {
		s.Tick(ctx)
	}
	_, counter := s.Status()
	assert.Equal(t, 30, counter)

	state.set(true, 5.1)
	assert.Equal(t, supervisor.PhaseNormal, s.Tick(ctx))
	_, counter = s.Status()
	assert.Equal(t, 0, counter)

	state.set(true, 3.0)
	for i := 0; i < 59; i++ {
		s.Tick(ctx)
	}
	assert.Equal(t, 0, sd.count())
}

func TestThresholdIsStrict(t *testing.T) {
	s, state, _ := newSupervisor(t)
	state.set(true, 4.0)

	assert.Equal(t, supervisor.PhaseNormal, s.Tick(context.Background()))

	state.set(true, 3.99)
	assert.Equal(t, supervisor.PhaseOnBattery, s.Tick(context.Background()))
}

func TestUnavailableHoldsState(t *testing.T) {
	s, state, sd := newSupervisor(t)
	ctx := context.Background()

	state.set(false, 0)
	for i := 0; i < 100; i++ {
		assert.Equal(t, supervisor.PhaseNormal, s.Tick(ctx))
	}

	state.set(true, 3.0)
	for i := 0; i < 10; i++ {
		s.Tick(ctx)
	}
	state.set(false, 5.0)
	assert.Equal(t, supervisor.PhaseOnBattery, s.Tick(ctx))
	_, counter := s.Status()
	assert.Equal(t, 10, counter)
	assert.Equal(t, 0, sd.count())
}

func TestShutdownErrorDoesNotStopSupervisor(t *testing.T) {
	state := &fakeUPS{}
	state.set(true, 1.0)
	sd := &countingShutdowner{err: stderrors.New("permission denied")}
	cfg := supervisor.DefaultConfig()
	cfg.Limit = 2

	s, err := supervisor.New(cfg, state, sd, logger.Nop())
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		s.Tick(context.Background())
	}
	assert.Equal(t, 3, sd.count())
}

func TestRecordsTransitions(t *testing.T) {
	rec := &memoryRecorder{err: stderrors.New("disk full")}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cfg := supervisor.DefaultConfig()
	cfg.Limit = 3

	state := &fakeUPS{}
	state.set(true, 2.0)
	s, err := supervisor.New(cfg, state, &countingShutdowner{}, logger.Nop(),
		supervisor.WithRecorder(rec),
		supervisor.WithClock(func() time.Time { return at }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		s.Tick(ctx)
	}
	state.set(true, 5.0)
	s.Tick(ctx)

	assert.Equal(t, []supervisor.EventKind{
		supervisor.EventOnBattery,
		supervisor.EventShutdownRequested,
		supervisor.EventPowerRestored,
	}, rec.kinds())
	assert.Equal(t, 3, rec.events[1].Counter)
	assert.Equal(t, 1, rec.events[2].Counter)
	assert.Equal(t, at, rec.events[0].Timestamp)
	assert.Equal(t, 2.0, rec.events[0].InputVoltage)
}

func TestRunStopsOnCancel(t *testing.T) {
	state := &fakeUPS{}
	state.set(true, 1.0)
	sd := &countingShutdowner{}
	cfg := supervisor.DefaultConfig()
	cfg.Interval = time.Millisecond
	cfg.Limit = 3

	s, err := supervisor.New(cfg, state, sd, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	require.Eventually(t, func() bool { return sd.count() >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
}

// statusRecorder reads the supervisor from inside Record, as the HTTP
// status endpoint may while an event is being written.
type statusRecorder struct {
	sup    *supervisor.Supervisor
	phases []supervisor.Phase
}

func (r *statusRecorder) Record(context.Context, supervisor.Event) error {
	phase, _ := r.sup.Status()
	r.phases = append(r.phases, phase)
	return nil
}

func TestRecordRunsOutsideLock(t *testing.T) {
	rec := &statusRecorder{}
	cfg := supervisor.DefaultConfig()
	cfg.Limit = 2

	state := &fakeUPS{}
	state.set(true, 2.0)
	s, err := supervisor.New(cfg, state, &countingShutdowner{}, logger.Nop(), supervisor.WithRecorder(rec))
	require.NoError(t, err)
	rec.sup = s

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Tick(context.Background())
		assert.Equal(t, supervisor.PhaseShutdownRequested, s.Tick(context.Background()))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Tick blocked while recording")
	}
	assert.Equal(t, []supervisor.Phase{supervisor.PhaseOnBattery, supervisor.PhaseOnBattery}, rec.phases)
}

func TestRunTwiceIsHarmless(t *testing.T) {
	state := &fakeUPS{}
	state.set(true, 5.0)
	cfg := supervisor.DefaultConfig()
	cfg.Interval = time.Millisecond

	s, err := supervisor.New(cfg, state, &countingShutdowner{}, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	returned := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s.Run(ctx)
			returned <- struct{}{}
		}()
	}

	// One call owns the loop; the other returns without waiting for ctx.
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("second Run did not return")
	}
	select {
	case <-s.Done():
		t.Fatal("loop stopped before cancel")
	default:
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := supervisor.DefaultConfig()
	cfg.Interval = 0
	_, err := supervisor.New(cfg, &fakeUPS{}, &countingShutdowner{}, logger.Nop())
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))

	cfg = supervisor.DefaultConfig()
	cfg.Limit = 0
	assert.True(t, errors.HasCode(cfg.Validate(), supervisor.ErrInvalidLimit))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "normal", supervisor.PhaseNormal.String())
	assert.Equal(t, "on_battery", supervisor.PhaseOnBattery.String())
	assert.Equal(t, "shutdown_requested", supervisor.PhaseShutdownRequested.String())
}
