package schema

import "time"

// DeploymentStatus represents the lifecycle state of a deployment.
type DeploymentStatus string

const (
	DeploymentStatusPending    DeploymentStatus = "pending"
	DeploymentStatusCompleted  DeploymentStatus = "completed"
	DeploymentStatusFailed     DeploymentStatus = "failed"
	DeploymentStatusRolledBack DeploymentStatus = "rolled_back"
)

// Deployment records one push of a scenario version to an environment.
type Deployment struct {
	ID          string           `json:"id"`
	ScenarioID  string           `json:"scenario_id"`
	Version     string           `json:"version"`
	Environment string           `json:"environment"`
	Status      DeploymentStatus `json:"status"`
	DeployedBy  string           `json:"deployed_by,omitempty"`
	RollbackOf  string           `json:"rollback_of,omitempty"` // deployment id this one reverts
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
