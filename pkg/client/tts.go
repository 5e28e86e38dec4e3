package client

import (
	"context"
	"net/http"
	"time"

	"arsflow/pkg/schema"
)

// PollConfig bounds a generation poll loop. Zero values fall back to the
// defaults; a loop is never unbounded.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 30
)

func (p PollConfig) withDefaults() PollConfig {
	if p.Interval <= 0 {
		p.Interval = defaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	return p
}

// CreateTTSScript stores a script for a voice actor.
func (c *Client) CreateTTSScript(ctx context.Context, text, voiceActorID, nodeID string) (*schema.TTSScript, error) {
	var script schema.TTSScript
	err := c.do(ctx, http.MethodPost, "/voice-actors/tts-scripts", map[string]any{
		"text":           text,
		"voice_actor_id": voiceActorID,
		"node_id":        nodeID,
	}, &script)
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// GenerateTTS enqueues a generation for a script. The returned job is
// pending; use WaitForGeneration to poll it to a terminal status.
func (c *Client) GenerateTTS(ctx context.Context, scriptID string) (*schema.TTSGeneration, error) {
	var g schema.TTSGeneration
	path := "/voice-actors/tts-scripts/" + scriptID + "/generate"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGeneration fetches the current state of a generation job.
func (c *Client) GetGeneration(ctx context.Context, generationID string) (*schema.TTSGeneration, error) {
	var g schema.TTSGeneration
	if err := c.do(ctx, http.MethodGet, "/voice-actors/tts-generations/"+generationID, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// WaitForGeneration polls a generation at a fixed interval until it reaches
// a terminal status. The loop is bounded by cfg.MaxAttempts and by ctx;
// exhausting either yields TIMEOUT_ERROR.
func (c *Client) WaitForGeneration(ctx context.Context, generationID string, cfg PollConfig) (*schema.TTSGeneration, error) {
	cfg = cfg.withDefaults()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		g, err := c.GetGeneration(ctx, generationID)
		if err != nil {
			return nil, err
		}
		if g.Status.Terminal() {
			return g, nil
		}

		select {
		case <-ctx.Done():
			return nil, schema.NewErrorf(schema.ErrCodeTimeout,
				"generation %q poll cancelled", generationID).WithCause(ctx.Err())
		case <-ticker.C:
		}
	}

	return nil, schema.NewErrorf(schema.ErrCodeTimeout,
		"generation %q not finished after %d attempts", generationID, cfg.MaxAttempts)
}

// GenerationAudio fetches the audio of a completed generation.
// Non-completed generations yield TTS_NOT_GENERATED.
func (c *Client) GenerationAudio(ctx context.Context, generationID string) ([]byte, error) {
	return c.doRaw(ctx, "/voice-actors/tts-generations/"+generationID+"/audio")
}

// ListVoiceActors returns the registered voices.
func (c *Client) ListVoiceActors(ctx context.Context) ([]schema.VoiceActor, error) {
	var out struct {
		VoiceActors []schema.VoiceActor `json:"voice_actors"`
	}
	if err := c.do(ctx, http.MethodGet, "/voice-actors", nil, &out); err != nil {
		return nil, err
	}
	return out.VoiceActors, nil
}
