package server

import (
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"arsflow/internal/store"
	"arsflow/pkg/schema"
)

// --- Voice actors ---

func (s *Server) handleListVoiceActors(w http.ResponseWriter, r *http.Request) {
	actors, err := s.deps.Store.ListVoiceActors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voice_actors": actors, "count": len(actors)})
}

func (s *Server) handleCreateVoiceActor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Gender      string `json:"gender"`
		Language    string `json:"language"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Name == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "name is required"))
		return
	}

	actor := &schema.VoiceActor{
		ID:          uuid.New().String(),
		Name:        body.Name,
		Gender:      body.Gender,
		Language:    body.Language,
		Description: body.Description,
	}
	if err := s.deps.Store.CreateVoiceActor(r.Context(), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, actor)
}

func (s *Server) handleDeleteVoiceActor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Store.DeleteVoiceActor(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": id})
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.deps.Store.ListVoiceSamples(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": samples, "count": len(samples)})
}

func (s *Server) handleCreateSample(w http.ResponseWriter, r *http.Request) {
	actorID := r.PathValue("id")
	if _, err := s.deps.Store.GetVoiceActor(r.Context(), actorID); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Name        string  `json:"name"`
		AudioPath   string  `json:"audio_path"`
		DurationSec float64 `json:"duration_sec"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Name == "" || body.AudioPath == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "name and audio_path are required"))
		return
	}

	sample := &schema.VoiceSample{
		ID:           uuid.New().String(),
		VoiceActorID: actorID,
		Name:         body.Name,
		AudioPath:    body.AudioPath,
		DurationSec:  body.DurationSec,
	}
	if err := s.deps.Store.CreateVoiceSample(r.Context(), sample); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}

// --- Scripts and generations ---

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	filter := store.TTSScriptFilter{
		VoiceActorID: r.URL.Query().Get("voice_actor_id"),
		NodeID:       r.URL.Query().Get("node_id"),
		Limit:        queryInt(r, "limit", 0),
	}
	scripts, err := s.deps.Store.ListTTSScripts(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scripts": scripts, "count": len(scripts)})
}

func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text         string `json:"text"`
		VoiceActorID string `json:"voice_actor_id"`
		NodeID       string `json:"node_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.VoiceActorID == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "voice_actor_id is required"))
		return
	}

	script, err := s.deps.TTS.CreateScript(r.Context(), body.Text, body.VoiceActorID, body.NodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, script)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.TTS.RequestGeneration(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, g)
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.TTS.GetGeneration(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGenerationAudio(w http.ResponseWriter, r *http.Request) {
	path, err := s.deps.TTS.AudioPath(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}

// --- Library ---

func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	filter := store.LibraryFilter{
		VoiceActorID: r.URL.Query().Get("voice_actor_id"),
		Search:       r.URL.Query().Get("search"),
		Limit:        queryInt(r, "limit", 0),
	}
	items, err := s.deps.Store.ListLibraryItems(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handlePromoteLibrary(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GenerationID string `json:"generation_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.GenerationID == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "generation_id is required"))
		return
	}

	item, err := s.deps.TTS.PromoteToLibrary(r.Context(), body.GenerationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUseLibrary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Store.IncrementLibraryUse(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": id})
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Store.DeleteLibraryItem(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": id})
}

// --- Engines ---

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	engines := s.deps.Engines.List()
	writeJSON(w, http.StatusOK, map[string]any{"engines": engines, "count": len(engines)})
}

func (s *Server) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("engine")
	if name == "" {
		writeJSON(w, http.StatusOK, map[string]any{"engines": s.deps.Engines.List()})
		return
	}
	status, err := s.deps.Engines.Status(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleEngineSwitch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("engine")
	if err := s.deps.Engines.Switch(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "active": name})
}

func (s *Server) handleEngineTest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("engine")

	var body struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Text == "" {
		body.Text = "안녕하세요. 음성 합성 테스트입니다."
	}

	outPath := filepath.Join(s.deps.TTS.AudioDir(), "engine-test-"+name+".wav")
	if err := s.deps.Engines.Test(r.Context(), name, body.Text, body.Voice, outPath); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "engine": name, "audio_path": outPath})
}

func (s *Server) handleEngineBenchmark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Engine string `json:"engine"`
		Text   string `json:"text"`
		Voice  string `json:"voice"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Engine == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "engine is required"))
		return
	}
	if body.Text == "" {
		body.Text = "주문하신 상품이 정상적으로 접수되었습니다."
	}

	outPath := filepath.Join(s.deps.TTS.AudioDir(), "benchmark-"+body.Engine+".wav")
	bench, err := s.deps.Engines.Benchmark(r.Context(), body.Engine, body.Text, body.Voice, outPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bench)
}
