package events

import (
	"context"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/supervisor"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopJournal struct{}

// NewService opens the journal, or returns a no-op journal when disabled.
func NewService(cfg Config, log logger.Logger) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Power event journal disabled, using no-op journal")
		return &noopJournal{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create event repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Msg("Power event journal initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, ev supervisor.Event) error {
	errFactory := errors.New()

	switch ev.Kind {
	case supervisor.EventOnBattery, supervisor.EventPowerRestored, supervisor.EventShutdownRequested:
	default:
		return errFactory.WithData(ErrInvalidEvent, string(ev.Kind))
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(ev); err != nil {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*service) Enabled() bool { return true }

func (*noopJournal) Record(context.Context, supervisor.Event) error { return nil }

func (*noopJournal) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }

func (*noopJournal) Close() error { return nil }

func (*noopJournal) Enabled() bool { return false }
