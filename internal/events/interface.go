// Package events keeps an optional sqlite journal of power supervisor
// transitions.
package events

import (
	"context"
	"time"

	"codeberg.org/mutker/infotainctl/internal/supervisor"
)

// Journal records supervisor transitions and serves them back.
type Journal interface {
	supervisor.EventRecorder
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
	Enabled() bool
}

// Repository is the storage behind a Journal.
type Repository interface {
	Record(ev supervisor.Event) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Entry is one stored transition.
type Entry struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	Timestamp    time.Time `json:"timestamp"`
	InputVoltage float64   `json:"input_voltage"`
	Capacity     float64   `json:"capacity"`
	Counter      int       `json:"counter"`
}
