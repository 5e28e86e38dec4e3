package tts

import (
	"context"
	"log/slog"
	"time"

	"arsflow/internal/store"
	"arsflow/pkg/schema"
)

const defaultPollInterval = 2 * time.Second

// Worker drains the pending generation queue in the background.
// One job at a time: synthesis is CPU-bound and the engines do not
// tolerate concurrent invocations well.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker polling at the given interval (0 for default).
func NewWorker(service *Service, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{service: service, interval: interval, logger: logger}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and processes jobs until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		g, err := w.service.store.ClaimPendingGeneration(ctx)
		if err != nil {
			w.logger.Error("claim tts generation failed", "error", err)
			return
		}
		if g == nil {
			return
		}
		w.ProcessOne(ctx, g)
	}
}

// ProcessOne synthesizes a claimed generation and records the outcome.
func (w *Worker) ProcessOne(ctx context.Context, g *schema.TTSGeneration) {
	script, err := w.service.store.GetTTSScript(ctx, g.ScriptID)
	if err != nil {
		w.fail(ctx, g, err)
		return
	}

	engine, err := w.service.registry.Active()
	if err != nil {
		w.fail(ctx, g, err)
		return
	}

	outPath := w.service.outPathFor(g.ID)
	if err := engine.Synthesize(ctx, script.Text, g.VoiceActorID, outPath); err != nil {
		w.fail(ctx, g, err)
		return
	}

	done := schema.TTSStatusCompleted
	now := time.Now().UTC()
	update := store.GenerationUpdate{
		Status:        &done,
		AudioFilePath: &outPath,
		CompletedAt:   &now,
	}
	if err := w.service.store.UpdateGeneration(ctx, g.ID, update); err != nil {
		w.logger.Error("record tts completion failed", "generation_id", g.ID, "error", err)
		return
	}

	g.Status = done
	g.AudioFilePath = outPath
	w.service.publish(ctx, schema.EventTTSCompleted, g)
	w.logger.Info("tts generation completed", "generation_id", g.ID, "engine", g.Engine)
}

func (w *Worker) fail(ctx context.Context, g *schema.TTSGeneration, cause error) {
	failed := schema.TTSStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	update := store.GenerationUpdate{
		Status:       &failed,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}
	if err := w.service.store.UpdateGeneration(ctx, g.ID, update); err != nil {
		w.logger.Error("record tts failure failed", "generation_id", g.ID, "error", err)
		return
	}

	g.Status = failed
	g.ErrorMessage = msg
	w.service.publish(ctx, schema.EventTTSFailed, g)
	w.logger.Warn("tts generation failed", "generation_id", g.ID, "error", cause)
}

// TimeOutStuck fails processing jobs older than maxAge. Called by the
// scheduler so crashed synthesis runs do not hold jobs forever.
func TimeOutStuck(ctx context.Context, st store.Store, maxAge time.Duration, logger *slog.Logger) (int, error) {
	processing := schema.TTSStatusProcessing
	cutoff := time.Now().UTC().Add(-maxAge)
	stuck, err := st.ListGenerations(ctx, store.GenerationFilter{
		Status: &processing,
		Before: &cutoff,
	})
	if err != nil {
		return 0, err
	}

	failed := schema.TTSStatusFailed
	msg := "generation timed out"
	now := time.Now().UTC()
	count := 0
	for _, g := range stuck {
		update := store.GenerationUpdate{
			Status:       &failed,
			ErrorMessage: &msg,
			CompletedAt:  &now,
		}
		if err := st.UpdateGeneration(ctx, g.ID, update); err != nil {
			if logger != nil {
				logger.Error("time out generation failed", "generation_id", g.ID, "error", err)
			}
			continue
		}
		count++
	}
	return count, nil
}
