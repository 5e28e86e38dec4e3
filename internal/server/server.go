package server

import (
	"log/slog"
	"net/http"
	"os"

	"arsflow/internal/deploy"
	"arsflow/internal/simulation"
	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/internal/tts"
)

// Deps holds the dependencies for the REST server.
type Deps struct {
	Store   store.Store
	Runner  *simulation.Runner
	TTS     *tts.Service
	Engines *tts.Registry
	Deploy  *deploy.Service
	Hub     streaming.EventHub
	Token   string // bearer token; empty disables auth
	Logger  *slog.Logger
}

// Server is the REST surface for scenario administration, simulation, TTS,
// and deployments.
type Server struct {
	deps Deps
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Scenarios and their sub-resources.
	mux.HandleFunc("GET /scenarios", s.handleListScenarios)
	mux.HandleFunc("POST /scenarios", s.handleCreateScenario)
	mux.HandleFunc("GET /scenarios/{id}", s.handleGetScenario)
	mux.HandleFunc("PUT /scenarios/{id}", s.handleUpdateScenario)
	mux.HandleFunc("DELETE /scenarios/{id}", s.handleDeleteScenario)
	mux.HandleFunc("GET /scenarios/{id}/history", s.handleScenarioHistory)

	mux.HandleFunc("GET /scenarios/{id}/nodes", s.handleListNodes)
	mux.HandleFunc("POST /scenarios/{id}/nodes", s.handleCreateNode)
	mux.HandleFunc("DELETE /scenarios/{id}/nodes/{node_id}", s.handleDeleteNode)

	mux.HandleFunc("GET /scenarios/{id}/connections", s.handleListConnections)
	mux.HandleFunc("POST /scenarios/{id}/connections", s.handleCreateConnection)
	mux.HandleFunc("DELETE /scenarios/{id}/connections/{conn_id}", s.handleDeleteConnection)

	mux.HandleFunc("GET /scenarios/{id}/versions", s.handleListVersions)
	mux.HandleFunc("POST /scenarios/{id}/versions", s.handleSnapshotVersion)
	mux.HandleFunc("POST /scenarios/{id}/revert/{version}", s.handleRevert)
	mux.HandleFunc("POST /scenarios/{id}/deploy", s.handleDeploy)

	// Simulation. Action and state are addressed by simulation id, not
	// scenario id, matching the client's URL shapes.
	mux.HandleFunc("POST /scenarios/{id}/simulation/start", s.handleSimulationStart)
	mux.HandleFunc("POST /scenarios/simulation/{id}/action", s.handleSimulationAction)
	mux.HandleFunc("GET /scenarios/simulation/{id}", s.handleSimulationGet)
	mux.HandleFunc("GET /scenarios/{id}/simulation/audio/{node_id}", s.handleSimulationAudio)

	// Voice actors and the TTS side-flow.
	mux.HandleFunc("GET /voice-actors", s.handleListVoiceActors)
	mux.HandleFunc("POST /voice-actors", s.handleCreateVoiceActor)
	mux.HandleFunc("DELETE /voice-actors/{id}", s.handleDeleteVoiceActor)
	mux.HandleFunc("GET /voice-actors/{id}/samples", s.handleListSamples)
	mux.HandleFunc("POST /voice-actors/{id}/samples", s.handleCreateSample)

	mux.HandleFunc("GET /voice-actors/tts-scripts", s.handleListScripts)
	mux.HandleFunc("POST /voice-actors/tts-scripts", s.handleCreateScript)
	mux.HandleFunc("POST /voice-actors/tts-scripts/{id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /voice-actors/tts-generations/{id}", s.handleGetGeneration)
	mux.HandleFunc("GET /voice-actors/tts-generations/{id}/audio", s.handleGenerationAudio)

	mux.HandleFunc("GET /voice-actors/tts-library", s.handleListLibrary)
	mux.HandleFunc("POST /voice-actors/tts-library", s.handlePromoteLibrary)
	mux.HandleFunc("POST /voice-actors/tts-library/{id}/use", s.handleUseLibrary)
	mux.HandleFunc("DELETE /voice-actors/tts-library/{id}", s.handleDeleteLibrary)

	// Deployments.
	mux.HandleFunc("GET /deployments", s.handleListDeployments)
	mux.HandleFunc("POST /deployments/{id}/rollback", s.handleRollback)
	mux.HandleFunc("GET /deployments/{id}/history", s.handleDeploymentHistory)
	mux.HandleFunc("GET /deployments/scenario/{id}/latest", s.handleLatestDeployment)

	// TTS engines.
	mux.HandleFunc("GET /tts-engines/", s.handleListEngines)
	mux.HandleFunc("GET /tts-engines/status", s.handleEngineStatus)
	mux.HandleFunc("POST /tts-engines/switch/{engine}", s.handleEngineSwitch)
	mux.HandleFunc("POST /tts-engines/test/{engine}", s.handleEngineTest)
	mux.HandleFunc("POST /tts-engines/benchmark", s.handleEngineBenchmark)

	// SSE streams.
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)
	mux.HandleFunc("GET /sse/scenarios/{id}", s.handleSSEScenario)

	return s.withAuth(mux)
}
