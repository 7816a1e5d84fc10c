// Package supervisor watches the UPS input voltage and requests a system
// shutdown after a sustained power loss.
package supervisor

import (
	"context"
	"time"

	"codeberg.org/mutker/infotainctl/internal/ups"
)

// BatteryThreshold is the input voltage below which the unit is running
// on battery.
const BatteryThreshold = 4.0

type Phase int

const (
	PhaseNormal Phase = iota
	PhaseOnBattery
	PhaseShutdownRequested
)

func (p Phase) String() string {
	switch p {
	case PhaseOnBattery:
		return "on_battery"
	case PhaseShutdownRequested:
		return "shutdown_requested"
	default:
		return "normal"
	}
}

// StateReader supplies consistent UPS snapshots.
type StateReader interface {
	Snapshot() ups.State
}

// Shutdowner powers the system off.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

type EventKind string

const (
	EventOnBattery         EventKind = "on_battery"
	EventPowerRestored     EventKind = "power_restored"
	EventShutdownRequested EventKind = "shutdown_requested"
)

// Event is one supervisor transition.
type Event struct {
	Kind         EventKind
	Timestamp    time.Time
	InputVoltage float64
	Capacity     float64
	Counter      int
}

// EventRecorder journals transitions.
type EventRecorder interface {
	Record(ctx context.Context, ev Event) error
}
