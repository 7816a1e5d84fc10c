package sensor

import (
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
)

const (
	defaultAddress     = 0x48
	defaultGain        = "2/3"
	defaultReadTimeout = 250 * time.Millisecond
)

type Config struct {
	Mock        bool
	Address     int
	Gain        string
	ReadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mock:        true,
		Address:     defaultAddress,
		Gain:        defaultGain,
		ReadTimeout: defaultReadTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Mock {
		return nil
	}
	if c.Address < 0 || c.Address > 0x7F {
		return errFactory.WithData(ErrInvalidAddress, c.Address)
	}
	if _, ok := gainConfig(c.Gain); !ok {
		return errFactory.WithData(ErrInvalidGain, c.Gain)
	}
	if c.ReadTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.ReadTimeout.String())
	}
	return nil
}
