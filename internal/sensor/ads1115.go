package sensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"github.com/reef-pi/rpi/i2c"
)

// ADS1115 registers and config bits.
const (
	regConversion = 0x00
	regConfig     = 0x01

	configOsSingle     uint16 = 0x8000
	configModeSingle   uint16 = 0x0100
	configDataRate860  uint16 = 0x00E0
	configCompQueueOff uint16 = 0x0003

	convPollWait = 200 * time.Microsecond
)

const (
	configGainTwoThirds uint16 = 0x0000 // +/- 6.144V
	configGainOne       uint16 = 0x0200 // +/- 4.096V
	configGainTwo       uint16 = 0x0400 // +/- 2.048V
	configGainFour      uint16 = 0x0600 // +/- 1.024V
	configGainEight     uint16 = 0x0800 // +/- 0.512V
	configGainSixteen   uint16 = 0x0A00 // +/- 0.256V
)

var muxSingle = [Channels]uint16{0x4000, 0x5000, 0x6000, 0x7000}

func gainConfig(label string) (uint16, bool) {
	switch label {
	case "2/3":
		return configGainTwoThirds, true
	case "1":
		return configGainOne, true
	case "2":
		return configGainTwo, true
	case "4":
		return configGainFour, true
	case "8":
		return configGainEight, true
	case "16":
		return configGainSixteen, true
	default:
		return 0, false
	}
}

func fullScaleVolts(gain uint16) float64 {
	switch gain {
	case configGainTwoThirds:
		return 6.144
	case configGainOne:
		return 4.096
	case configGainTwo:
		return 2.048
	case configGainFour:
		return 1.024
	case configGainEight:
		return 0.512
	default:
		return 0.256
	}
}

// Hardware reads single-ended channels of an ADS1115 over I2C.
type Hardware struct {
	bus     i2c.Bus
	addr    byte
	gain    uint16
	timeout time.Duration
	logger  logger.Logger

	// serializes write-config / poll / read-conversion sequences
	mu sync.Mutex
}

var _ Source = (*Hardware)(nil)

// NewHardware wraps an already opened bus.
func NewHardware(bus i2c.Bus, cfg Config, log logger.Logger) (*Hardware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gain, _ := gainConfig(cfg.Gain)

	return &Hardware{
		bus:     bus,
		addr:    byte(cfg.Address),
		gain:    gain,
		timeout: cfg.ReadTimeout,
		logger:  log,
	}, nil
}

func (*Hardware) Kind() Kind { return KindHardware }

func (h *Hardware) Close() error {
	return h.bus.Close()
}

// Voltage performs one bounded conversion. Failures and timeouts are
// logged and reported as 0.
func (h *Hardware) Voltage(ctx context.Context, channel int) float64 {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	type result struct {
		volts float64
		err   error
	}
	done := make(chan result, 1)

	go func() {
		v, err := h.read(ctx, channel)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			h.logger.Warn().Err(r.err).Int("channel", channel).Msg("ADC read failed")
			return 0
		}
		return r.volts
	case <-ctx.Done():
		h.logger.Warn().
			Err(errors.New().Wrap(ErrConversionTimer, ctx.Err())).
			Int("channel", channel).
			Msg("ADC read timed out")
		return 0
	}
}

func (h *Hardware) read(ctx context.Context, channel int) (float64, error) {
	errFactory := errors.New()

	if channel < 0 || channel >= Channels {
		return 0, errFactory.WithData(ErrInvalidChannel, channel)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	config := configOsSingle | configModeSingle | configDataRate860 | configCompQueueOff |
		muxSingle[channel] | h.gain

	buf := []byte{byte(config >> 8), byte(config)}
	if err := h.bus.WriteToReg(h.addr, regConfig, buf); err != nil {
		return 0, errFactory.Wrap(ErrConversion, fmt.Errorf("write config: %w", err))
	}

	cfg := make([]byte, 2)
	for {
		if err := h.bus.ReadFromReg(h.addr, regConfig, cfg); err != nil {
			return 0, errFactory.Wrap(ErrConversion, fmt.Errorf("read config: %w", err))
		}
		if binary.BigEndian.Uint16(cfg)&configOsSingle != 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return 0, errFactory.Wrap(ErrConversionTimer, err)
		}
		time.Sleep(convPollWait)
	}

	b := make([]byte, 2)
	if err := h.bus.ReadFromReg(h.addr, regConversion, b); err != nil {
		return 0, errFactory.Wrap(ErrConversion, fmt.Errorf("read conversion: %w", err))
	}
	raw := int16(binary.BigEndian.Uint16(b))

	return float64(raw) / 32768.0 * fullScaleVolts(h.gain), nil
}
