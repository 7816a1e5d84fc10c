package events_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/events"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledConfig(t *testing.T) events.Config {
	t.Helper()
	cfg := events.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "journal", "events.db")
	cfg.FlushInterval = time.Hour
	return cfg
}

func TestDisabledJournalIsNoop(t *testing.T) {
	j, err := events.NewService(events.DefaultConfig(), logger.Nop())
	require.NoError(t, err)
	assert.False(t, j.Enabled())

	require.NoError(t, j.Record(context.Background(), supervisor.Event{Kind: supervisor.EventOnBattery}))
	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, j.Close())
}

func TestRecordAndRecent(t *testing.T) {
	j, err := events.NewService(enabledConfig(t), logger.Nop())
	require.NoError(t, err)
	defer j.Close()
	assert.True(t, j.Enabled())

	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, supervisor.Event{
		Kind: supervisor.EventOnBattery, Timestamp: base, InputVoltage: 0.2, Capacity: 90,
	}))
	require.NoError(t, j.Record(ctx, supervisor.Event{
		Kind: supervisor.EventPowerRestored, Timestamp: base.Add(10 * time.Second), InputVoltage: 5.1, Capacity: 89, Counter: 10,
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "power_restored", entries[0].Kind)
	assert.Equal(t, 10, entries[0].Counter)
	assert.Equal(t, base.Add(10*time.Second), entries[0].Timestamp)
	assert.Equal(t, "on_battery", entries[1].Kind)
	assert.Equal(t, 0.2, entries[1].InputVoltage)
	assert.Equal(t, 90.0, entries[1].Capacity)

	limited, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEntriesSurviveReopen(t *testing.T) {
	cfg := enabledConfig(t)
	ctx := context.Background()

	j, err := events.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, supervisor.Event{
		Kind: supervisor.EventShutdownRequested, Timestamp: time.Now(), Counter: 60,
	}))
	require.NoError(t, j.Close())

	j, err = events.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shutdown_requested", entries[0].Kind)
	assert.Equal(t, 60, entries[0].Counter)
}

func TestRejectsUnknownKind(t *testing.T) {
	j, err := events.NewService(enabledConfig(t), logger.Nop())
	require.NoError(t, err)
	defer j.Close()

	err = j.Record(context.Background(), supervisor.Event{Kind: "brownout"})
	assert.True(t, errors.HasCode(err, events.ErrInvalidEvent))
}

func TestRecordHonoursCancelledContext(t *testing.T) {
	j, err := events.NewService(enabledConfig(t), logger.Nop())
	require.NoError(t, err)
	defer j.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = j.Record(ctx, supervisor.Event{Kind: supervisor.EventOnBattery})
	assert.True(t, errors.HasCode(err, events.ErrOperationTimeout))
}

func TestRecordAfterCloseFails(t *testing.T) {
	repo, err := events.NewRepository(enabledConfig(t), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	err = repo.Record(supervisor.Event{Kind: supervisor.EventOnBattery})
	assert.True(t, errors.HasCode(err, events.ErrJournalClosed))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, events.DefaultConfig().Validate())

	cfg := events.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), events.ErrInvalidDBPath))

	cfg = events.DefaultConfig()
	cfg.Enabled = true
	cfg.BatchSize = 0
	assert.True(t, errors.HasCode(cfg.Validate(), events.ErrInvalidBatch))

	_, err := events.NewService(cfg, logger.Nop())
	assert.True(t, errors.HasCode(err, events.ErrInvalidConfig))
}
