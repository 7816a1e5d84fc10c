package supervisor

import (
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
)

const (
	defaultInterval = time.Second
	defaultLimit    = 60
)

type Config struct {
	// Interval between ticks.
	Interval time.Duration
	// Limit is the number of consecutive on-battery ticks that trigger a
	// shutdown.
	Limit int
	// ShutdownCommand is run on shutdown. Empty means log only.
	ShutdownCommand []string
}

func DefaultConfig() Config {
	return Config{
		Interval: defaultInterval,
		Limit:    defaultLimit,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}
	if c.Limit <= 0 {
		return errFactory.WithData(ErrInvalidLimit, c.Limit)
	}
	return nil
}
