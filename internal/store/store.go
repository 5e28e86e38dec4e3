package store

import (
	"context"

	"arsflow/pkg/schema"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Scenarios
	CreateScenario(ctx context.Context, sc *schema.Scenario) error
	GetScenario(ctx context.Context, id string) (*schema.Scenario, error)
	UpdateScenario(ctx context.Context, id string, update ScenarioUpdate) error
	ListScenarios(ctx context.Context, filter ScenarioFilter) ([]*schema.Scenario, error)
	DeleteScenario(ctx context.Context, id string) error

	// Nodes (addressable resources under a scenario)
	CreateNode(ctx context.Context, scenarioID string, node *schema.ScenarioNode) error
	ListNodes(ctx context.Context, scenarioID string) ([]schema.ScenarioNode, error)
	DeleteNode(ctx context.Context, scenarioID, nodeID string) error
	DeleteAllNodes(ctx context.Context, scenarioID string) error

	// Connections
	CreateConnection(ctx context.Context, scenarioID string, conn *schema.Connection) error
	ListConnections(ctx context.Context, scenarioID string) ([]schema.Connection, error)
	DeleteConnection(ctx context.Context, scenarioID string, id int64) error
	DeleteAllConnections(ctx context.Context, scenarioID string) error

	// Versions (immutable snapshots)
	CreateVersion(ctx context.Context, v *schema.ScenarioVersion) error
	GetVersion(ctx context.Context, scenarioID, version string) (*schema.ScenarioVersion, error)
	ListVersions(ctx context.Context, scenarioID string) ([]*schema.ScenarioVersion, error)

	// Deployments
	CreateDeployment(ctx context.Context, d *schema.Deployment) error
	GetDeployment(ctx context.Context, id string) (*schema.Deployment, error)
	UpdateDeployment(ctx context.Context, id string, update DeploymentUpdate) error
	ListDeployments(ctx context.Context, filter DeploymentFilter) ([]*schema.Deployment, error)
	LatestDeployment(ctx context.Context, scenarioID, environment string) (*schema.Deployment, error)

	// Voice actors
	CreateVoiceActor(ctx context.Context, actor *schema.VoiceActor) error
	GetVoiceActor(ctx context.Context, id string) (*schema.VoiceActor, error)
	ListVoiceActors(ctx context.Context) ([]*schema.VoiceActor, error)
	DeleteVoiceActor(ctx context.Context, id string) error
	CreateVoiceSample(ctx context.Context, sample *schema.VoiceSample) error
	ListVoiceSamples(ctx context.Context, voiceActorID string) ([]*schema.VoiceSample, error)

	// TTS scripts
	CreateTTSScript(ctx context.Context, script *schema.TTSScript) error
	GetTTSScript(ctx context.Context, id string) (*schema.TTSScript, error)
	ListTTSScripts(ctx context.Context, filter TTSScriptFilter) ([]*schema.TTSScript, error)
	DeleteTTSScript(ctx context.Context, id string) error

	// TTS generations
	CreateGeneration(ctx context.Context, g *schema.TTSGeneration) error
	GetGeneration(ctx context.Context, id string) (*schema.TTSGeneration, error)
	UpdateGeneration(ctx context.Context, id string, update GenerationUpdate) error
	ListGenerations(ctx context.Context, filter GenerationFilter) ([]*schema.TTSGeneration, error)
	ClaimPendingGeneration(ctx context.Context) (*schema.TTSGeneration, error)

	// TTS library
	CreateLibraryItem(ctx context.Context, item *schema.LibraryItem) error
	ListLibraryItems(ctx context.Context, filter LibraryFilter) ([]*schema.LibraryItem, error)
	IncrementLibraryUse(ctx context.Context, id string) error
	DeleteLibraryItem(ctx context.Context, id string) error

	// Event log (append-only)
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, scenarioID string, since int64) ([]*Event, error)
	GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
