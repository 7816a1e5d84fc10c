package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"codeberg.org/mutker/infotainctl/internal/api"
	"codeberg.org/mutker/infotainctl/internal/config"
	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/events"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/pid"
	"codeberg.org/mutker/infotainctl/internal/relay"
	"codeberg.org/mutker/infotainctl/internal/sensor"
	"codeberg.org/mutker/infotainctl/internal/smoothing"
	"codeberg.org/mutker/infotainctl/internal/supervisor"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	"codeberg.org/mutker/infotainctl/internal/ups"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	pidPath := pid.DefaultPath()
	if err := pid.Write(pidPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Warn().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func run(parent context.Context, cfg *config.Config) error {
	log := logger.Default()

	ctx, stop := context.WithCancel(parent)
	defer stop()

	source, err := sensor.New(cfg.SensorConfig(), log.With("sensor"), nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Continuing with synthetic sensors")
	}
	defer source.Close()

	ema, err := smoothing.New(cfg.Sensors.Alpha)
	if err != nil {
		return err
	}
	aggregator := telemetry.NewAggregator(source, cfg.Profiles, ema)

	warnCfg, err := cfg.WarningConfig()
	if err != nil {
		return err
	}
	warnings, err := telemetry.NewWarningTracker(warnCfg)
	if err != nil {
		return err
	}

	mode := ups.ModeHardware
	if cfg.Mock {
		mode = ups.ModeSynthetic
	}
	store := ups.NewStore(mode, log.With("ups"))

	journal, err := events.NewService(cfg.EventsConfig(), log.With("events"))
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event journal")
		}
	}()

	supCfg := cfg.SupervisorConfig()
	sup, err := supervisor.New(
		supCfg,
		store,
		supervisor.NewShutdowner(supCfg.ShutdownCommand, log.With("shutdown")),
		log.With("supervisor"),
		supervisor.WithRecorder(journal),
	)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if mode == ups.ModeHardware {
		reader := ups.NewReader(cfg.UPSConfig(), store, log.With("ups"), ups.OpenSerial)
		spawn(func() { _ = reader.Run(ctx) })
	}

	spawn(func() { sup.Run(ctx) })

	if cfg.MQTT.Broker != "" {
		if err := startRelay(ctx, cfg, aggregator, store, warnings, log, spawn); err != nil {
			logger.Warn().Err(err).Msg("MQTT relay disabled")
		}
	}

	server := api.New(api.Deps{
		Config:     cfg,
		Telemetry:  aggregator,
		Warnings:   warnings,
		UPS:        store,
		Supervisor: sup,
		Journal:    journal,
		Logger:     log.With("http"),
	})

	logger.Info().
		Str("sensors", aggregator.SourceKind().String()).
		Str("ups", mode.String()).
		Bool("events", journal.Enabled()).
		Msg("Started")

	err = server.ListenAndServe(ctx, cfg.HTTP.Listen)
	stop()
	wg.Wait()
	return err
}

func startRelay(
	ctx context.Context,
	cfg *config.Config,
	aggregator *telemetry.Aggregator,
	store *ups.Store,
	warnings *telemetry.WarningTracker,
	log logger.Logger,
	spawn func(func()),
) error {
	relayCfg := cfg.RelayConfig()
	relayLog := log.With("relay")

	client, err := relay.Connect(relayCfg, relayLog)
	if err != nil {
		return err
	}

	r, err := relay.New(relayCfg, client, aggregator, store, warnings, relayLog)
	if err != nil {
		relay.Disconnect(client)
		return err
	}

	spawn(func() {
		defer relay.Disconnect(client)
		r.Run(ctx)
	})
	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
