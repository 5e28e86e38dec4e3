package server

import (
	"net/http"

	"arsflow/internal/store"
	"arsflow/pkg/schema"
)

func (s *Server) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Store.GetScenario(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := s.deps.Runner.Start(r.Context(), sc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleSimulationAction(w http.ResponseWriter, r *http.Request) {
	var action schema.SimulationAction
	if err := decodeBody(r, &action); err != nil {
		writeError(w, err)
		return
	}

	state, err := s.deps.Runner.Apply(r.Context(), r.PathValue("id"), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSimulationGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.Runner.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSimulationAudio serves the generated prompt audio of a node. A node
// with no completed generation yields TTS_NOT_GENERATED so the client can
// distinguish "not generated" from transport failure.
func (s *Server) handleSimulationAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodeID := r.PathValue("node_id")

	scripts, err := s.deps.Store.ListTTSScripts(ctx, store.TTSScriptFilter{NodeID: nodeID})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(scripts) == 0 {
		writeError(w, schema.NewErrorf(schema.ErrCodeTTSNotGenerated,
			"no TTS script for node %q", nodeID).WithNode(nodeID))
		return
	}

	completed := schema.TTSStatusCompleted
	for _, script := range scripts {
		gens, err := s.deps.Store.ListGenerations(ctx, store.GenerationFilter{
			ScriptID: script.ID,
			Status:   &completed,
			Limit:    1,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if len(gens) > 0 && gens[0].AudioFilePath != "" {
			w.Header().Set("Content-Type", "audio/wav")
			http.ServeFile(w, r, gens[0].AudioFilePath)
			return
		}
	}

	writeError(w, schema.NewErrorf(schema.ErrCodeTTSNotGenerated,
		"audio for node %q has not been generated", nodeID).WithNode(nodeID))
}
