package tts

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
)

// Service owns TTS scripts, generation jobs, and the audio library.
// Generations are asynchronous: RequestGeneration enqueues a pending job
// and the Worker completes it; clients poll GetGeneration.
type Service struct {
	store    store.Store
	registry *Registry
	hub      streaming.EventHub
	audioDir string
	logger   *slog.Logger
}

// NewService creates a Service. hub may be nil to disable event streaming.
func NewService(st store.Store, registry *Registry, hub streaming.EventHub, audioDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, registry: registry, hub: hub, audioDir: audioDir, logger: logger}
}

// CreateScript stores a new script after checking the voice actor exists.
func (s *Service) CreateScript(ctx context.Context, text, voiceActorID, nodeID string) (*schema.TTSScript, error) {
	if text == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "script text is empty")
	}
	if _, err := s.store.GetVoiceActor(ctx, voiceActorID); err != nil {
		return nil, err
	}

	script := &schema.TTSScript{
		ID:           uuid.New().String(),
		Text:         text,
		VoiceActorID: voiceActorID,
		NodeID:       nodeID,
	}
	if err := s.store.CreateTTSScript(ctx, script); err != nil {
		return nil, err
	}
	return script, nil
}

// RequestGeneration enqueues a pending generation for a script using the
// active engine. The returned generation is in status pending; poll
// GetGeneration until it reaches a terminal status.
func (s *Service) RequestGeneration(ctx context.Context, scriptID string) (*schema.TTSGeneration, error) {
	script, err := s.store.GetTTSScript(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	engine, err := s.registry.Active()
	if err != nil {
		return nil, err
	}

	g := &schema.TTSGeneration{
		ID:           uuid.New().String(),
		ScriptID:     script.ID,
		VoiceActorID: script.VoiceActorID,
		Engine:       engine.Name(),
		Status:       schema.TTSStatusPending,
	}
	if err := s.store.CreateGeneration(ctx, g); err != nil {
		return nil, err
	}

	s.publish(ctx, schema.EventTTSRequested, g)
	return g, nil
}

// GetGeneration returns the current state of a generation job.
func (s *Service) GetGeneration(ctx context.Context, id string) (*schema.TTSGeneration, error) {
	return s.store.GetGeneration(ctx, id)
}

// AudioPath returns the audio file path of a completed generation.
// Non-terminal or failed generations yield TTS_NOT_GENERATED so callers can
// distinguish "not ready yet" from transport failures.
func (s *Service) AudioPath(ctx context.Context, generationID string) (string, error) {
	g, err := s.store.GetGeneration(ctx, generationID)
	if err != nil {
		return "", err
	}
	if g.Status != schema.TTSStatusCompleted || g.AudioFilePath == "" {
		return "", schema.NewErrorf(schema.ErrCodeTTSNotGenerated,
			"generation %q is %s; no audio available", generationID, g.Status)
	}
	return g.AudioFilePath, nil
}

// PromoteToLibrary copies a completed generation into the reusable library.
func (s *Service) PromoteToLibrary(ctx context.Context, generationID string) (*schema.LibraryItem, error) {
	g, err := s.store.GetGeneration(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if g.Status != schema.TTSStatusCompleted {
		return nil, schema.NewErrorf(schema.ErrCodeTTSNotGenerated,
			"generation %q is %s; only completed generations can be promoted", generationID, g.Status)
	}
	script, err := s.store.GetTTSScript(ctx, g.ScriptID)
	if err != nil {
		return nil, err
	}

	item := &schema.LibraryItem{
		ID:            uuid.New().String(),
		Text:          script.Text,
		VoiceActorID:  g.VoiceActorID,
		AudioFilePath: g.AudioFilePath,
	}
	if err := s.store.CreateLibraryItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AudioDir returns the directory generated audio is written to.
func (s *Service) AudioDir() string { return s.audioDir }

// outPathFor builds the audio destination for a generation.
func (s *Service) outPathFor(generationID string) string {
	return filepath.Join(s.audioDir, generationID+".wav")
}

func (s *Service) publish(ctx context.Context, eventType string, g *schema.TTSGeneration) {
	if s.hub == nil {
		return
	}
	err := s.hub.Publish(ctx, streaming.StreamEvent{
		EventType: eventType,
		Payload: map[string]any{
			"generation_id": g.ID,
			"script_id":     g.ScriptID,
			"status":        string(g.Status),
		},
	})
	if err != nil {
		s.logger.Warn("publish tts event failed", "generation_id", g.ID, "event", eventType, "error", err)
	}
}
