package ups

import "codeberg.org/mutker/infotainctl/internal/errors"

const (
	defaultPort = "/dev/serial0"
	defaultBaud = 9600
)

type Config struct {
	Port string
	Baud int
}

func DefaultConfig() Config {
	return Config{
		Port: defaultPort,
		Baud: defaultBaud,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Port == "" {
		return errFactory.New(ErrInvalidPort)
	}
	if c.Baud <= 0 {
		return errFactory.WithData(ErrInvalidBaud, c.Baud)
	}
	return nil
}
