package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
)

// Service owns scenario versioning and deployments. A deploy snapshots the
// scenario into an immutable version, records a deployment against an
// environment, and activates the scenario. Rollback re-points an environment
// at an earlier version without touching the working copy; Revert rewrites
// the working copy from a snapshot.
type Service struct {
	store  store.Store
	hub    streaming.EventHub
	logger *slog.Logger
}

// NewService creates a Service. hub may be nil to disable event streaming.
func NewService(st store.Store, hub streaming.EventHub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, hub: hub, logger: logger}
}

// Snapshot captures the scenario's current nodes and connections as an
// immutable version. Snapshotting the same version string twice is a conflict.
func (s *Service) Snapshot(ctx context.Context, scenarioID, comment string) (*schema.ScenarioVersion, error) {
	sc, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(sc)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "snapshot scenario %q", scenarioID).WithCause(err)
	}

	v := &schema.ScenarioVersion{
		ScenarioID: sc.ID,
		Version:    sc.Version,
		Snapshot:   raw,
		Comment:    comment,
	}
	if err := s.store.CreateVersion(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListVersions returns all snapshots of a scenario, newest first.
func (s *Service) ListVersions(ctx context.Context, scenarioID string) ([]*schema.ScenarioVersion, error) {
	if _, err := s.store.GetScenario(ctx, scenarioID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, scenarioID)
}

// Deploy pushes the scenario's current version to an environment. The
// version is snapshotted on first deploy; the scenario becomes active.
func (s *Service) Deploy(ctx context.Context, scenarioID, environment, deployedBy string) (*schema.Deployment, error) {
	sc, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetVersion(ctx, scenarioID, sc.Version); err != nil {
		if schema.CodeOf(err) != schema.ErrCodeNotFound {
			return nil, err
		}
		comment := fmt.Sprintf("snapshot on deploy to %s", environment)
		if _, err := s.Snapshot(ctx, scenarioID, comment); err != nil {
			return nil, err
		}
	}

	d := &schema.Deployment{
		ID:          uuid.New().String(),
		ScenarioID:  scenarioID,
		Version:     sc.Version,
		Environment: environment,
		Status:      schema.DeploymentStatusPending,
		DeployedBy:  deployedBy,
	}
	if err := s.store.CreateDeployment(ctx, d); err != nil {
		return nil, err
	}

	completed := schema.DeploymentStatusCompleted
	now := time.Now().UTC()
	if err := s.store.UpdateDeployment(ctx, d.ID, store.DeploymentUpdate{
		Status:      &completed,
		CompletedAt: &now,
	}); err != nil {
		return nil, err
	}
	d.Status = completed
	d.CompletedAt = &now

	active := schema.ScenarioStatusActive
	if err := s.store.UpdateScenario(ctx, scenarioID, store.ScenarioUpdate{Status: &active}); err != nil {
		return nil, err
	}

	s.record(ctx, scenarioID, schema.EventScenarioDeployed, deployedBy, map[string]any{
		"deployment_id": d.ID,
		"version":       d.Version,
		"environment":   environment,
	})
	return d, nil
}

// Rollback re-points an environment at the version of an earlier completed
// deployment. The currently live deployment is marked rolled_back and a new
// deployment referencing it is created.
func (s *Service) Rollback(ctx context.Context, targetDeploymentID, deployedBy string) (*schema.Deployment, error) {
	target, err := s.store.GetDeployment(ctx, targetDeploymentID)
	if err != nil {
		return nil, err
	}
	if target.Status != schema.DeploymentStatusCompleted {
		return nil, schema.NewErrorf(schema.ErrCodeConflict,
			"deployment %q is %s; only completed deployments can be rolled back to", targetDeploymentID, target.Status)
	}

	live, err := s.store.LatestDeployment(ctx, target.ScenarioID, target.Environment)
	if err != nil {
		return nil, err
	}
	if live.ID == target.ID {
		return nil, schema.NewErrorf(schema.ErrCodeConflict,
			"deployment %q is already live in %s", targetDeploymentID, target.Environment)
	}

	rolledBack := schema.DeploymentStatusRolledBack
	if err := s.store.UpdateDeployment(ctx, live.ID, store.DeploymentUpdate{Status: &rolledBack}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &schema.Deployment{
		ID:          uuid.New().String(),
		ScenarioID:  target.ScenarioID,
		Version:     target.Version,
		Environment: target.Environment,
		Status:      schema.DeploymentStatusPending,
		DeployedBy:  deployedBy,
		RollbackOf:  live.ID,
	}
	if err := s.store.CreateDeployment(ctx, d); err != nil {
		return nil, err
	}
	completed := schema.DeploymentStatusCompleted
	if err := s.store.UpdateDeployment(ctx, d.ID, store.DeploymentUpdate{
		Status:      &completed,
		CompletedAt: &now,
	}); err != nil {
		return nil, err
	}
	d.Status = completed
	d.CompletedAt = &now

	s.record(ctx, target.ScenarioID, schema.EventDeploymentRolledBack, deployedBy, map[string]any{
		"deployment_id": d.ID,
		"rollback_of":   live.ID,
		"version":       d.Version,
		"environment":   d.Environment,
	})
	return d, nil
}

// History returns a scenario's deployments, newest first.
func (s *Service) History(ctx context.Context, scenarioID, environment string) ([]*schema.Deployment, error) {
	return s.store.ListDeployments(ctx, store.DeploymentFilter{
		ScenarioID:  scenarioID,
		Environment: environment,
	})
}

// Latest returns the deployment currently live in an environment.
func (s *Service) Latest(ctx context.Context, scenarioID, environment string) (*schema.Deployment, error) {
	return s.store.LatestDeployment(ctx, scenarioID, environment)
}

// Revert rewrites the working scenario from a version snapshot: the header
// fields are restored and every node and connection is replaced by the
// snapshot's set. Connections go first on delete and last on create so
// foreign keys hold throughout.
func (s *Service) Revert(ctx context.Context, scenarioID, version string) (*schema.Scenario, error) {
	v, err := s.store.GetVersion(ctx, scenarioID, version)
	if err != nil {
		return nil, err
	}

	var snap schema.Scenario
	if err := json.Unmarshal(v.Snapshot, &snap); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore,
			"corrupt snapshot for scenario %q version %q", scenarioID, version).WithCause(err)
	}

	if err := s.store.DeleteAllConnections(ctx, scenarioID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteAllNodes(ctx, scenarioID); err != nil {
		return nil, err
	}
	for i := range snap.Nodes {
		if err := s.store.CreateNode(ctx, scenarioID, &snap.Nodes[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Connections {
		snap.Connections[i].ID = 0
		if err := s.store.CreateConnection(ctx, scenarioID, &snap.Connections[i]); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateScenario(ctx, scenarioID, store.ScenarioUpdate{
		Name:        &snap.Name,
		Description: &snap.Description,
		Category:    &snap.Category,
		Version:     &snap.Version,
		Metadata:    snap.Metadata,
	}); err != nil {
		return nil, err
	}

	s.record(ctx, scenarioID, schema.EventScenarioReverted, "", map[string]any{
		"version": version,
	})
	return s.store.GetScenario(ctx, scenarioID)
}

// record appends to the audit log and publishes to the hub, best effort.
func (s *Service) record(ctx context.Context, scenarioID, eventType, actor string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	if err := s.store.AppendEvent(ctx, &store.Event{
		ScenarioID: scenarioID,
		Type:       eventType,
		Payload:    raw,
		Actor:      actor,
	}); err != nil {
		s.logger.Warn("append deployment event failed", "scenario_id", scenarioID, "event", eventType, "error", err)
	}

	if s.hub == nil {
		return
	}
	err = s.hub.Publish(ctx, streaming.StreamEvent{
		ScenarioID: scenarioID,
		EventType:  eventType,
		Payload:    payload,
	})
	if err != nil {
		s.logger.Warn("publish deployment event failed", "scenario_id", scenarioID, "event", eventType, "error", err)
	}
}
