package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
)

// Supervisor counts consecutive on-battery ticks and fires the
// Shutdowner once the count reaches the configured limit. After firing,
// the count restarts so a further full limit is needed to fire again.
type Supervisor struct {
	cfg      Config
	state    StateReader
	shutdown Shutdowner
	recorder EventRecorder
	logger   logger.Logger
	now      func() time.Time

	phase   Phase
	counter int
	mu      sync.Mutex

	started atomic.Bool
	done    chan struct{}
}

type Option func(*Supervisor)

// WithRecorder journals every transition to r.
func WithRecorder(r EventRecorder) Option {
	return func(s *Supervisor) { s.recorder = r }
}

// WithClock replaces the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

func New(cfg Config, state StateReader, shutdown Shutdowner, log logger.Logger, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:      cfg,
		state:    state,
		shutdown: shutdown,
		logger:   log,
		now:      time.Now,
		phase:    PhaseNormal,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Status returns the current phase and on-battery tick count.
func (s *Supervisor) Status() (Phase, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, s.counter
}

// Tick evaluates one UPS snapshot. It returns PhaseShutdownRequested on
// the tick that fired the Shutdowner, otherwise the phase after the tick.
func (s *Supervisor) Tick(ctx context.Context) Phase {
	phase, fire, evs := s.evaluate()

	// Recorder and Shutdowner may block on I/O; neither runs under the lock.
	for _, ev := range evs {
		s.record(ctx, ev)
	}
	if !fire {
		return phase
	}

	s.logger.Error().Int("ticks", s.cfg.Limit).Msg("Initiating system shutdown")
	if err := s.shutdown.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Shutdown request failed")
	}
	return PhaseShutdownRequested
}

// evaluate advances the state machine. It reports whether the shutdown
// must fire and the transitions to journal.
func (s *Supervisor) evaluate() (Phase, bool, []Event) {
	st := s.state.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !st.Available {
		return s.phase, false, nil
	}

	ev := Event{
		Timestamp:    s.now(),
		InputVoltage: st.InputVoltage,
		Capacity:     st.Capacity,
	}

	if st.InputVoltage >= BatteryThreshold {
		if s.phase != PhaseOnBattery {
			return s.phase, false, nil
		}
		s.logger.Info().Float64("input_voltage", st.InputVoltage).Msg("Power restored, shutdown cancelled")
		ev.Kind, ev.Counter = EventPowerRestored, s.counter
		s.phase, s.counter = PhaseNormal, 0
		return s.phase, false, []Event{ev}
	}

	var evs []Event
	if s.phase == PhaseNormal {
		s.phase, s.counter = PhaseOnBattery, 0
		ev.Kind = EventOnBattery
		evs = append(evs, ev)
	}
	s.counter++

	s.logger.Warn().
		Float64("input_voltage", st.InputVoltage).
		Int("remaining", s.cfg.Limit-s.counter).
		Msg("Power loss detected")

	if s.counter < s.cfg.Limit {
		return s.phase, false, evs
	}

	ev.Kind, ev.Counter = EventShutdownRequested, s.counter
	evs = append(evs, ev)

	s.phase, s.counter = PhaseOnBattery, 0
	return PhaseShutdownRequested, true, evs
}

func (s *Supervisor) record(ctx context.Context, ev Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, ev); err != nil {
		s.logger.Warn().
			Err(errors.New().Wrap(ErrRecordTransition, err)).
			Str("event", string(ev.Kind)).
			Msg("Failed to record power event")
	}
}

// Run ticks every Interval until ctx is cancelled. Only the first call
// runs the loop; later calls return immediately.
func (s *Supervisor) Run(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Power supervisor already running")
		return
	}
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("limit", s.cfg.Limit).
		Msg("Power supervisor started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Done is closed once Run returns.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}
