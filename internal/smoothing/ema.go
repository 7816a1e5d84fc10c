// Package smoothing provides an exponential moving average filter keyed
// by metric name.
package smoothing

import (
	"sync"

	"codeberg.org/mutker/infotainctl/internal/errors"
)

// DefaultAlpha weights the newest sample.
const DefaultAlpha = 0.2

// EMA keeps one running average per metric. The zero value is not usable;
// construct with New.
type EMA struct {
	alpha float64
	prev  map[string]float64
	mu    sync.Mutex
}

// New returns an EMA with the given alpha, which must lie in (0, 1].
func New(alpha float64) (*EMA, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, errors.New().WithData(errors.ErrInvalidAlpha, alpha)
	}

	return &EMA{
		alpha: alpha,
		prev:  make(map[string]float64),
	}, nil
}

// Alpha returns the smoothing factor.
func (e *EMA) Alpha() float64 {
	return e.alpha
}

// Apply folds raw into the metric's average and returns the new average.
// The first value seen for a metric is returned unchanged.
func (e *EMA) Apply(metric string, raw float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.prev[metric]
	if !ok {
		e.prev[metric] = raw
		return raw
	}

	v := e.alpha*raw + (1-e.alpha)*prev
	e.prev[metric] = v
	return v
}

// Reset forgets the metric's history.
func (e *EMA) Reset(metric string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.prev, metric)
}

// Value returns the current average and whether the metric is seeded.
func (e *EMA) Value(metric string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.prev[metric]
	return v, ok
}
