package schema

import "time"

// TTSStatus represents the lifecycle state of a generation job.
type TTSStatus string

const (
	TTSStatusPending    TTSStatus = "pending"
	TTSStatusProcessing TTSStatus = "processing"
	TTSStatusCompleted  TTSStatus = "completed"
	TTSStatusFailed     TTSStatus = "failed"
)

// Terminal reports whether the status will not change again.
func (s TTSStatus) Terminal() bool {
	return s == TTSStatusCompleted || s == TTSStatusFailed
}

// VoiceActor is the metadata record for a TTS voice.
type VoiceActor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender,omitempty"`
	Language    string    `json:"language,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoiceSample is a reference recording attached to a voice actor.
type VoiceSample struct {
	ID           string    `json:"id"`
	VoiceActorID string    `json:"voice_actor_id"`
	Name         string    `json:"name"`
	AudioPath    string    `json:"audio_path"`
	DurationSec  float64   `json:"duration_sec,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TTSScript is the text source for a generation job.
type TTSScript struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	VoiceActorID string    `json:"voice_actor_id"`
	NodeID       string    `json:"node_id,omitempty"` // message node the script belongs to
	CreatedAt    time.Time `json:"created_at"`
}

// TTSGeneration is a generation job producing an audio asset.
type TTSGeneration struct {
	ID            string     `json:"id"`
	ScriptID      string     `json:"script_id"`
	VoiceActorID  string     `json:"voice_actor_id"`
	Engine        string     `json:"engine"`
	Status        TTSStatus  `json:"status"`
	AudioFilePath string     `json:"audio_file_path,omitempty"`
	QualityScore  float64    `json:"quality_score,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// LibraryItem is a reusable generated audio asset.
type LibraryItem struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	VoiceActorID  string    `json:"voice_actor_id"`
	AudioFilePath string    `json:"audio_file_path"`
	UseCount      int       `json:"use_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// TTSEngine describes one installed synthesis backend.
type TTSEngine struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
	Active    bool   `json:"active"`
}

// EngineBenchmark is the timing result of a synthesis test run.
type EngineBenchmark struct {
	Engine     string  `json:"engine"`
	SampleText string  `json:"sample_text"`
	DurationMs int64   `json:"duration_ms"`
	CharPerSec float64 `json:"char_per_sec"`
}
