// Package ups tracks the state of the serial-attached UPS controller.
package ups

import (
	"sync"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"github.com/google/uuid"
)

// Mode selects between a real UPS and the simulated one.
type Mode int

const (
	ModeSynthetic Mode = iota
	ModeHardware
)

func (m Mode) String() string {
	if m == ModeHardware {
		return "hardware"
	}
	return "synthetic"
}

// Hardware defaults until the first status line arrives.
const (
	defaultCapacity     = 100.0
	defaultInputVoltage = 5.0
)

// State is one consistent view of the UPS.
type State struct {
	Available    bool
	Voltage      float64
	Capacity     float64
	InputVoltage float64
	Charging     bool
}

// StatusReport is the externally visible UPS status. Only Available is
// set when the UPS is not reporting.
type StatusReport struct {
	Available    bool     `json:"available"`
	Voltage      *float64 `json:"voltage,omitempty"`
	Capacity     *float64 `json:"capacity,omitempty"`
	Charging     *bool    `json:"charging,omitempty"`
	InputVoltage *float64 `json:"input_voltage,omitempty"`
}

// OverrideRequest carries simulated readings. Absent fields are left
// unchanged.
type OverrideRequest struct {
	Voltage      *float64 `json:"voltage,omitempty"`
	Capacity     *float64 `json:"capacity,omitempty"`
	InputVoltage *float64 `json:"input_voltage,omitempty"`
	Charging     *bool    `json:"charging,omitempty"`
}

// OwnerToken identifies the client holding a simulated override.
type OwnerToken string

// NewOwnerToken issues a fresh random token.
func NewOwnerToken() OwnerToken {
	return OwnerToken(uuid.NewString())
}

// ParseOwnerToken accepts only tokens shaped like those NewOwnerToken
// issues.
func ParseOwnerToken(s string) (OwnerToken, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", errors.New().Wrap(ErrInvalidOwner, err)
	}
	return OwnerToken(id.String()), nil
}

// Store guards the UPS state. Every read and write takes the whole record
// under one lock.
type Store struct {
	mode   Mode
	state  State
	owner  OwnerToken
	logger logger.Logger
	mu     sync.RWMutex
}

func NewStore(mode Mode, log logger.Logger) *Store {
	s := &Store{mode: mode, logger: log}
	if mode == ModeHardware {
		s.state = State{
			Available:    true,
			Capacity:     defaultCapacity,
			InputVoltage: defaultInputVoltage,
			Charging:     true,
		}
	}
	return s
}

func (s *Store) Mode() Mode { return s.mode }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status reports the state in its external shape.
func (s *Store) Status() StatusReport {
	st := s.Snapshot()
	if !st.Available {
		return StatusReport{Available: false}
	}
	return StatusReport{
		Available:    true,
		Voltage:      &st.Voltage,
		Capacity:     &st.Capacity,
		Charging:     &st.Charging,
		InputVoltage: &st.InputVoltage,
	}
}

// Apply merges u into the state.
func (s *Store) Apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(u)
}

// ApplyLine parses a status line and merges it, deriving Charging from
// the merged input voltage. Lines without any known key change nothing.
func (s *Store) ApplyLine(line string) bool {
	u := ParseLine(line)
	if !u.Recognized {
		s.logger.Debug().Str("line", line).Msg("Ignoring UPS line without known fields")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge(u)
	s.state.Charging = s.state.InputVoltage > ChargingThreshold
	return true
}

// MarkUnavailable records that the UPS is not reporting.
func (s *Store) MarkUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Available = false
}

// Override applies simulated readings on behalf of owner and marks the
// UPS available. Only permitted in synthetic mode.
func (s *Store) Override(owner OwnerToken, req OverrideRequest) error {
	if s.mode != ModeSynthetic {
		return errors.New().WithData(ErrOverrideNotAllowed, s.mode.String())
	}
	if owner == "" {
		return errors.New().New(ErrInvalidOwner)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge(Update{
		Voltage:      req.Voltage,
		Capacity:     req.Capacity,
		InputVoltage: req.InputVoltage,
		Charging:     req.Charging,
	})
	s.state.Available = true
	s.owner = owner
	return nil
}

// Release drops owner's override. It returns false, leaving the state
// untouched, when owner does not hold the override.
func (s *Store) Release(owner OwnerToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner == "" || owner != s.owner {
		return false
	}
	s.owner = ""
	s.state.Available = false
	return true
}

// Owner returns the current override holder, if any.
func (s *Store) Owner() (OwnerToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, s.owner != ""
}

func (s *Store) merge(u Update) {
	if u.Voltage != nil {
		s.state.Voltage = *u.Voltage
	}
	if u.Capacity != nil {
		s.state.Capacity = *u.Capacity
	}
	if u.InputVoltage != nil {
		s.state.InputVoltage = *u.InputVoltage
	}
	if u.Charging != nil {
		s.state.Charging = *u.Charging
	}
}
