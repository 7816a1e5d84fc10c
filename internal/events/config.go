package events

import (
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
)

const (
	defaultDirPerm       = 0o755
	defaultDBPath        = "/var/lib/infotainctl/events.db"
	defaultBatchSize     = 16
	defaultFlushInterval = 5 * time.Second
)

type Config struct {
	Enabled       bool
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		DBPath:        defaultDBPath,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate storage settings if the journal is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize <= 0 {
		return errFactory.WithData(ErrInvalidBatch, c.BatchSize)
	}
	if c.FlushInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.FlushInterval.String())
	}
	return nil
}
