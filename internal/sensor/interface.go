// Package sensor provides raw voltage sources for the telemetry channels.
package sensor

import "context"

// Kind identifies which Source variant is in use.
type Kind int

const (
	KindSynthetic Kind = iota
	KindHardware
)

func (k Kind) String() string {
	if k == KindHardware {
		return "hardware"
	}
	return "synthetic"
}

// Source produces one raw voltage per call. Voltage never fails: sources
// report read problems through their logger and return 0.
type Source interface {
	Voltage(ctx context.Context, channel int) float64
	Kind() Kind
	Close() error
}

// Channels is the number of single-ended inputs on the ADC.
const Channels = 4
