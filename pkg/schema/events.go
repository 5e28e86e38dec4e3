package schema

// Event type constants for the scenario event log.
const (
	EventScenarioCreated  = "scenario_created"
	EventScenarioUpdated  = "scenario_updated"
	EventScenarioDeleted  = "scenario_deleted"
	EventScenarioReverted = "scenario_reverted"

	EventNodeCreated       = "node_created"
	EventNodeDeleted       = "node_deleted"
	EventConnectionCreated = "connection_created"

	EventScenarioDeployed     = "scenario_deployed"
	EventDeploymentRolledBack = "deployment_rolled_back"

	EventSimulationStarted   = "simulation_started"
	EventSimulationAdvanced  = "simulation_advanced"
	EventSimulationCompleted = "simulation_completed"
	EventSimulationStopped   = "simulation_stopped"
	EventSimulationExpired   = "simulation_expired"

	EventTTSRequested = "tts_requested"
	EventTTSCompleted = "tts_completed"
	EventTTSFailed    = "tts_failed"
	EventTTSTimedOut  = "tts_timed_out"
)
