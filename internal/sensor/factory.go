package sensor

import (
	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"github.com/reef-pi/rpi/i2c"
)

// BusOpener opens the I2C bus the ADC is attached to.
type BusOpener func() (i2c.Bus, error)

// DefaultBusOpener opens the Raspberry Pi's primary I2C bus.
var DefaultBusOpener BusOpener = func() (i2c.Bus, error) {
	bus, err := i2c.New()
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// New picks the source variant once, at startup. The returned Source is
// never nil: when hardware cannot be brought up the synthetic source is
// returned together with the reason.
func New(cfg Config, log logger.Logger, open BusOpener) (Source, error) {
	if cfg.Mock {
		log.Info().Msg("Using synthetic sensor source")
		return NewSynthetic(), nil
	}

	if open == nil {
		open = DefaultBusOpener
	}

	bus, err := open()
	if err != nil {
		diag := errors.New().Wrap(ErrBusOpen, err)
		log.Warn().Err(diag).Msg("ADC unavailable, falling back to synthetic sensor source")
		return NewSynthetic(), diag
	}

	hw, err := NewHardware(bus, cfg, log)
	if err != nil {
		_ = bus.Close()
		log.Warn().Err(err).Msg("Invalid ADC configuration, falling back to synthetic sensor source")
		return NewSynthetic(), err
	}

	log.Info().
		Int("address", cfg.Address).
		Str("gain", cfg.Gain).
		Dur("read_timeout", cfg.ReadTimeout).
		Msg("Using ADS1115 sensor source")

	return hw, nil
}
