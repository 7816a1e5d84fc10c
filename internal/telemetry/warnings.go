package telemetry

import (
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/infotainctl/internal/calibration"
)

// WarningTracker keeps a warning active while a metric is out of bounds
// and for Hold after the last out-of-bounds sample.
type WarningTracker struct {
	cfg    Config
	now    func() time.Time
	active map[calibration.Metric]Warning
	mu     sync.Mutex
}

func NewWarningTracker(cfg Config) (*WarningTracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &WarningTracker{
		cfg:    cfg,
		now:    time.Now,
		active: make(map[calibration.Metric]Warning),
	}, nil
}

// WithClock replaces the tracker's time source.
func (w *WarningTracker) WithClock(now func() time.Time) *WarningTracker {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
	return w
}

// Observe evaluates s and returns the warnings active afterwards.
func (w *WarningTracker) Observe(s Sample) []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()

	for m, th := range w.cfg.Thresholds {
		value, ok := s.Value(m)
		if !ok {
			continue
		}

		level, triggered := evaluate(value, th)
		if triggered {
			warn, exists := w.active[m]
			if !exists {
				warn = Warning{Metric: m, Since: now}
			}
			warn.Level = level
			warn.Value = value
			warn.ExpiresAt = now.Add(w.cfg.Hold)
			w.active[m] = warn
			continue
		}

		if warn, exists := w.active[m]; exists && !now.Before(warn.ExpiresAt) {
			delete(w.active, m)
		}
	}

	return w.list()
}

// Active returns the warnings currently held, without a new sample.
func (w *WarningTracker) Active() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.list()
}

func (w *WarningTracker) list() []Warning {
	out := make([]Warning, 0, len(w.active))
	for _, warn := range w.active {
		out = append(out, warn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out
}

func evaluate(value float64, th Threshold) (Level, bool) {
	if th.Min != nil && value < *th.Min {
		return LevelLow, true
	}
	if th.Max != nil && value > *th.Max {
		return LevelHigh, true
	}
	return "", false
}
