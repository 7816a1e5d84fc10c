package ups

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"go.bug.st/serial"
)

const (
	readTimeout  = 100 * time.Millisecond
	errorBackoff = time.Second
	readBufSize  = 256
	maxLineLen   = 4096
)

// Port is the part of a serial port the reader needs. Read returns 0 and
// a nil error when the read timeout elapses without data.
type Port interface {
	io.Reader
	io.Closer
}

// PortOpener opens the UPS serial device.
type PortOpener func(name string, baud int) (Port, error)

// OpenSerial opens name at baud, 8N1, with the reader's poll timeout.
func OpenSerial(name string, baud int) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Reader feeds status lines from the serial device into a Store.
type Reader struct {
	cfg     Config
	store   *Store
	open    PortOpener
	logger  logger.Logger
	backoff time.Duration
}

func NewReader(cfg Config, store *Store, log logger.Logger, open PortOpener) *Reader {
	if open == nil {
		open = OpenSerial
	}
	return &Reader{
		cfg:     cfg,
		store:   store,
		open:    open,
		logger:  log,
		backoff: errorBackoff,
	}
}

// WithBackoff sets the pause after a read error.
func (r *Reader) WithBackoff(d time.Duration) *Reader {
	r.backoff = d
	return r
}

// Run opens the port and reads until ctx is cancelled. If the port cannot
// be opened the store is marked unavailable and the error returned.
func (r *Reader) Run(ctx context.Context) error {
	port, err := r.open(r.cfg.Port, r.cfg.Baud)
	if err != nil {
		r.store.MarkUnavailable()
		openErr := errors.New().Wrap(ErrSerialOpen, err)
		r.logger.Warn().Err(openErr).Str("port", r.cfg.Port).Msg("UPS unavailable")
		return openErr
	}

	r.logger.Info().Str("port", r.cfg.Port).Int("baud", r.cfg.Baud).Msg("Reading UPS status")

	// Unblock a pending Read on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer func() {
		if stop() {
			_ = port.Close()
		}
	}()

	var pending []byte
	buf := make([]byte, readBufSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := port.Read(buf)
		if n > 0 {
			pending = r.consume(append(pending, buf[:n]...))
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Warn().
				Err(errors.New().Wrap(ErrSerialRead, err)).
				Msg("Error reading UPS serial")
			if !sleep(ctx, r.backoff) {
				return nil
			}
		}
	}
}

// consume applies every complete line in data and returns the remainder.
func (r *Reader) consume(data []byte) []byte {
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(data[:i]))
		data = data[i+1:]
		if line != "" {
			r.store.ApplyLine(line)
		}
	}

	if len(data) > maxLineLen {
		r.logger.Debug().Int("bytes", len(data)).Msg("Discarding unterminated UPS data")
		return nil
	}
	return data
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
