package scheduler

import (
	"context"
	"log/slog"
	"time"

	"arsflow/internal/simulation"
	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/internal/tts"
	"arsflow/pkg/schema"
)

// MaintenanceConfig bounds the lifetimes the janitor enforces.
type MaintenanceConfig struct {
	// SessionIdleTTL marks running simulations idle longer than this as expired.
	SessionIdleTTL time.Duration
	// SessionRetention removes terminal sessions untouched for this long.
	SessionRetention time.Duration
	// GenerationTimeout fails TTS generations stuck in processing this long.
	GenerationTimeout time.Duration
}

// DefaultMaintenanceConfig returns the stock lifetimes.
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		SessionIdleTTL:    30 * time.Minute,
		SessionRetention:  2 * time.Hour,
		GenerationTimeout: 10 * time.Minute,
	}
}

// RegisterMaintenance wires the standard maintenance tasks into a janitor.
func RegisterMaintenance(j *Janitor, runner *simulation.Runner, st store.Store, hub streaming.EventHub, cfg MaintenanceConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := j.Register("expire-idle-simulations", "* * * * *", func(ctx context.Context) error {
		expired := runner.Sessions().ExpireIdle(cfg.SessionIdleTTL)
		for _, id := range expired {
			logger.Info("simulation session expired", "session_id", id)
			if hub == nil {
				continue
			}
			err := hub.Publish(ctx, streaming.StreamEvent{
				SimulationID: id,
				EventType:    schema.EventSimulationExpired,
			})
			if err != nil {
				logger.Warn("publish expiry event failed", "session_id", id, "error", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := j.Register("sweep-terminal-simulations", "*/10 * * * *", func(ctx context.Context) error {
		if removed := runner.Sessions().Sweep(cfg.SessionRetention); removed > 0 {
			logger.Info("swept simulation sessions", "count", removed)
		}
		return nil
	}); err != nil {
		return err
	}

	return j.Register("timeout-stuck-generations", "* * * * *", func(ctx context.Context) error {
		n, err := tts.TimeOutStuck(ctx, st, cfg.GenerationTimeout, logger)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Warn("timed out stuck tts generations", "count", n)
			if hub != nil {
				_ = hub.Publish(ctx, streaming.StreamEvent{EventType: schema.EventTTSTimedOut})
			}
		}
		return nil
	})
}
