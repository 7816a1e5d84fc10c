// Package config loads daemon settings from defaults, a config file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/infotainctl/internal/calibration"
	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/events"
	"codeberg.org/mutker/infotainctl/internal/relay"
	"codeberg.org/mutker/infotainctl/internal/sensor"
	"codeberg.org/mutker/infotainctl/internal/smoothing"
	"codeberg.org/mutker/infotainctl/internal/supervisor"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	"codeberg.org/mutker/infotainctl/internal/ups"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel     = string(LogLevelInfo)
	DefaultEnvPrefix    = "INFOTAINCTL"
	DefaultListen       = ":5001"
	DefaultMQTTTopic    = "infotainment/telemetry"
	DefaultMQTTClientID = "infotainctl"
	DefaultMQTTInterval = time.Second
	defaultConfigName   = "infotainctl"
	defaultConfigDir    = "/etc"
	legacyMockEnv       = "MOCK_SENSORS"
	configFileEnvSuffix = "_CONFIG"
)

type Config struct {
	Mock       bool             `mapstructure:"mock" json:"mock"`
	LogLevel   string           `mapstructure:"log_level" json:"log_level"`
	Sensors    SensorsConfig    `mapstructure:"sensors" json:"sensors"`
	UPS        UPSConfig        `mapstructure:"ups" json:"ups"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" json:"supervisor"`
	HTTP       HTTPConfig       `mapstructure:"http" json:"http"`
	MQTT       MQTTConfig       `mapstructure:"mqtt" json:"mqtt"`
	Events     EventsConfig     `mapstructure:"events" json:"events"`
	Warnings   WarningsConfig   `mapstructure:"warnings" json:"warnings"`

	// Profiles is derived from Sensors.Calibration by Validate.
	Profiles calibration.Profiles `mapstructure:"-" json:"-"`
}

type SensorsConfig struct {
	Alpha       float64                           `mapstructure:"alpha" json:"alpha"`
	ReadTimeout time.Duration                     `mapstructure:"read_timeout" json:"read_timeout"`
	I2CAddress  int                               `mapstructure:"i2c_address" json:"i2c_address"`
	Gain        string                            `mapstructure:"gain" json:"gain"`
	Calibration map[string]calibration.RawProfile `mapstructure:"calibration" json:"calibration"`
}

type UPSConfig struct {
	Port string `mapstructure:"port" json:"port"`
	Baud int    `mapstructure:"baud" json:"baud"`
}

type SupervisorConfig struct {
	Interval        time.Duration `mapstructure:"interval" json:"interval"`
	Limit           int           `mapstructure:"limit" json:"limit"`
	ShutdownCommand string        `mapstructure:"shutdown_command" json:"shutdown_command"`
}

type HTTPConfig struct {
	Listen string `mapstructure:"listen" json:"listen"`
}

type MQTTConfig struct {
	Broker   string        `mapstructure:"broker" json:"broker"`
	Topic    string        `mapstructure:"topic" json:"topic"`
	ClientID string        `mapstructure:"client_id" json:"client_id"`
	Interval time.Duration `mapstructure:"interval" json:"interval"`
}

type EventsConfig struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled"`
	DBPath        string        `mapstructure:"db_path" json:"db_path"`
	BatchSize     int           `mapstructure:"batch_size" json:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval" json:"flush_interval"`
}

type WarningsConfig struct {
	Hold       time.Duration                  `mapstructure:"hold" json:"hold"`
	Thresholds map[string]telemetry.Threshold `mapstructure:"thresholds" json:"thresholds"`
}

func setDefaults(v *viper.Viper) {
	sensorDefaults := sensor.DefaultConfig()
	upsDefaults := ups.DefaultConfig()
	supervisorDefaults := supervisor.DefaultConfig()
	eventsDefaults := events.DefaultConfig()
	warningDefaults := telemetry.DefaultConfig()

	v.SetDefault("mock", sensorDefaults.Mock)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetDefault("sensors.alpha", smoothing.DefaultAlpha)
	v.SetDefault("sensors.read_timeout", sensorDefaults.ReadTimeout)
	v.SetDefault("sensors.i2c_address", sensorDefaults.Address)
	v.SetDefault("sensors.gain", sensorDefaults.Gain)

	v.SetDefault("ups.port", upsDefaults.Port)
	v.SetDefault("ups.baud", upsDefaults.Baud)

	v.SetDefault("supervisor.interval", supervisorDefaults.Interval)
	v.SetDefault("supervisor.limit", supervisorDefaults.Limit)
	v.SetDefault("supervisor.shutdown_command", "")

	v.SetDefault("http.listen", DefaultListen)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.client_id", DefaultMQTTClientID)
	v.SetDefault("mqtt.interval", DefaultMQTTInterval)

	v.SetDefault("events.enabled", eventsDefaults.Enabled)
	v.SetDefault("events.db_path", eventsDefaults.DBPath)
	v.SetDefault("events.batch_size", eventsDefaults.BatchSize)
	v.SetDefault("events.flush_interval", eventsDefaults.FlushInterval)

	v.SetDefault("warnings.hold", warningDefaults.Hold)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("infotainctl", pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.Bool("mock", true, "Use synthetic sensors and a simulated UPS")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("listen", DefaultListen, "HTTP listen address")
	fs.String("ups-port", ups.DefaultConfig().Port, "UPS serial device")
	fs.String("mqtt-broker", "", "MQTT broker URL; empty disables the relay")
	fs.Bool("events", false, "Journal power events to sqlite")
	fs.String("events-db", events.DefaultConfig().DBPath, "Power event database path")
	return fs
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"mock":        "mock",
	"log-level":   "log_level",
	"listen":      "http.listen",
	"ups-port":    "ups.port",
	"mqtt-broker": "mqtt.broker",
	"events":      "events.enabled",
	"events-db":   "events.db_path",
}

// Load reads the configuration and validates it.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}
	if !o.argsSet && len(os.Args) > 1 {
		o.args = os.Args[1:]
	}

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("mock", o.envPrefix+"_MOCK", legacyMockEnv); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	configPath := o.configPath
	if f := fs.Lookup("config"); f != nil && f.Changed {
		configPath = f.Value.String()
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + configFileEnvSuffix)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		// Extensionless paths are read as TOML
		if filepath.Ext(configPath) == "" {
			v.SetConfigType("toml")
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Explicit flags win over file and environment
	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section and derives Profiles.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if !(c.Sensors.Alpha > 0 && c.Sensors.Alpha <= 1) {
		return errFactory.WithData(errors.ErrInvalidAlpha, c.Sensors.Alpha)
	}

	profiles, err := calibration.ParseProfiles(c.Sensors.Calibration)
	if err != nil {
		return err
	}
	c.Profiles = profiles

	if err := c.SensorConfig().Validate(); err != nil {
		return err
	}
	if !c.Mock {
		if err := c.UPSConfig().Validate(); err != nil {
			return err
		}
	}
	if err := c.SupervisorConfig().Validate(); err != nil {
		return err
	}
	if err := c.EventsConfig().Validate(); err != nil {
		return err
	}
	if _, err := c.WarningConfig(); err != nil {
		return err
	}
	if c.MQTT.Broker != "" {
		if err := c.RelayConfig().Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) SensorConfig() sensor.Config {
	return sensor.Config{
		Mock:        c.Mock,
		Address:     c.Sensors.I2CAddress,
		Gain:        c.Sensors.Gain,
		ReadTimeout: c.Sensors.ReadTimeout,
	}
}

func (c *Config) UPSConfig() ups.Config {
	return ups.Config{
		Port: c.UPS.Port,
		Baud: c.UPS.Baud,
	}
}

func (c *Config) SupervisorConfig() supervisor.Config {
	return supervisor.Config{
		Interval:        c.Supervisor.Interval,
		Limit:           c.Supervisor.Limit,
		ShutdownCommand: strings.Fields(c.Supervisor.ShutdownCommand),
	}
}

func (c *Config) EventsConfig() events.Config {
	return events.Config{
		Enabled:       c.Events.Enabled,
		DBPath:        c.Events.DBPath,
		BatchSize:     c.Events.BatchSize,
		FlushInterval: c.Events.FlushInterval,
	}
}

func (c *Config) RelayConfig() relay.Config {
	return relay.Config{
		Broker:   c.MQTT.Broker,
		ClientID: c.MQTT.ClientID,
		Topic:    c.MQTT.Topic,
		Interval: c.MQTT.Interval,
	}
}

// WarningConfig merges configured thresholds over the defaults.
func (c *Config) WarningConfig() (telemetry.Config, error) {
	wc := telemetry.DefaultConfig()
	wc.Hold = c.Warnings.Hold
	for name, th := range c.Warnings.Thresholds {
		wc.Thresholds[calibration.Metric(name)] = th
	}
	return wc, wc.Validate()
}
