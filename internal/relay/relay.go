// Package relay broadcasts telemetry frames to an MQTT broker.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout  = 5 * time.Second
	publishTimeout  = 2 * time.Second
	disconnectQuiet = 250 // ms
)

const (
	ErrConnect = errors.ErrorCode("relay_connect_failed")
	ErrPublish = errors.ErrorCode("relay_publish_failed")
	ErrEncode  = errors.ErrorCode("relay_encode_failed")
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Interval time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Topic == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "MQTT topic must not be empty")
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}
	return nil
}

// Publisher is the part of mqtt.Client the relay uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// UPSStatus supplies the UPS part of each frame.
type UPSStatus interface {
	Status() telemetry.UPSStatus
}

// Connect dials the broker. The client reconnects on its own after a
// successful first connection.
func Connect(cfg Config, log logger.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
		})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.New().WithData(ErrConnect, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.New().Wrap(ErrConnect, err)
	}
	return c, nil
}

// Disconnect closes a client returned by Connect.
func Disconnect(c mqtt.Client) {
	c.Disconnect(disconnectQuiet)
}

// Relay publishes one frame per interval.
type Relay struct {
	cfg       Config
	pub       Publisher
	telemetry telemetry.Snapshotter
	ups       UPSStatus
	warnings  *telemetry.WarningTracker
	logger    logger.Logger
}

func New(
	cfg Config,
	pub Publisher,
	snap telemetry.Snapshotter,
	status UPSStatus,
	warnings *telemetry.WarningTracker,
	log logger.Logger,
) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Relay{
		cfg:       cfg,
		pub:       pub,
		telemetry: snap,
		ups:       status,
		warnings:  warnings,
		logger:    log,
	}, nil
}

// Run publishes until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info().
		Str("topic", r.cfg.Topic).
		Dur("interval", r.cfg.Interval).
		Msg("MQTT relay started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.PublishOnce(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to publish telemetry")
			}
		}
	}
}

// PublishOnce takes a snapshot and publishes it at QoS 0.
func (r *Relay) PublishOnce(ctx context.Context) error {
	errFactory := errors.New()

	sample := r.telemetry.Snapshot(ctx)
	if r.warnings != nil {
		r.warnings.Observe(sample)
	}

	payload, err := json.Marshal(telemetry.NewFrame(sample, r.ups.Status()))
	if err != nil {
		return errFactory.Wrap(ErrEncode, err)
	}

	token := r.pub.Publish(r.cfg.Topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errFactory.WithData(ErrPublish, "timeout")
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(ErrPublish, err)
	}
	return nil
}
