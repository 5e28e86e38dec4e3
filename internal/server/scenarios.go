package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"arsflow/internal/store"
	"arsflow/pkg/schema"
)

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	filter := store.ScenarioFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := schema.ScenarioStatus(v)
		filter.Status = &status
	}

	scenarios, err := s.deps.Store.ListScenarios(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios, "count": len(scenarios)})
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Category    string         `json:"category"`
		Version     string         `json:"version"`
		Metadata    map[string]any `json:"scenario_metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Name == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "name is required"))
		return
	}
	if body.Version == "" {
		body.Version = "1.0"
	}

	sc := &schema.Scenario{
		ID:          uuid.New().String(),
		Name:        body.Name,
		Description: body.Description,
		Category:    body.Category,
		Version:     body.Version,
		Status:      schema.ScenarioStatusDraft,
		Metadata:    body.Metadata,
	}
	if err := s.deps.Store.CreateScenario(r.Context(), sc); err != nil {
		writeError(w, err)
		return
	}

	s.audit(r.Context(), sc.ID, "", schema.EventScenarioCreated, map[string]any{"name": sc.Name})
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Store.GetScenario(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Name        *string                `json:"name"`
		Description *string                `json:"description"`
		Category    *string                `json:"category"`
		Version     *string                `json:"version"`
		Status      *schema.ScenarioStatus `json:"status"`
		Metadata    map[string]any         `json:"scenario_metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	update := store.ScenarioUpdate{
		Name:        body.Name,
		Description: body.Description,
		Category:    body.Category,
		Version:     body.Version,
		Status:      body.Status,
		Metadata:    body.Metadata,
	}
	if err := s.deps.Store.UpdateScenario(r.Context(), id, update); err != nil {
		writeError(w, err)
		return
	}

	s.audit(r.Context(), id, "", schema.EventScenarioUpdated, nil)
	sc, err := s.deps.Store.GetScenario(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Store.DeleteScenario(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": id})
}

func (s *Server) handleScenarioHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	since := int64(queryInt(r, "since", 0))

	events, err := s.deps.Store.GetEvents(r.Context(), id, since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// --- Nodes ---

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.deps.Store.ListNodes(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("id")

	var node schema.ScenarioNode
	if err := decodeBody(r, &node); err != nil {
		writeError(w, err)
		return
	}
	if node.NodeID == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "node_id is required"))
		return
	}
	if !node.NodeType.Valid() {
		writeError(w, schema.NewErrorf(schema.ErrCodeValidation, "unknown node_type %q", node.NodeType).WithNode(node.NodeID))
		return
	}
	if node.Name == "" {
		node.Name = node.NodeType.DefaultLabel()
	}

	if err := s.deps.Store.CreateNode(r.Context(), scenarioID, &node); err != nil {
		writeError(w, err)
		return
	}

	s.audit(r.Context(), scenarioID, node.NodeID, schema.EventNodeCreated, map[string]any{"node_type": node.NodeType})
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("id")
	nodeID := r.PathValue("node_id")

	if err := s.deps.Store.DeleteNode(r.Context(), scenarioID, nodeID); err != nil {
		writeError(w, err)
		return
	}

	s.audit(r.Context(), scenarioID, nodeID, schema.EventNodeDeleted, nil)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "node_id": nodeID})
}

// --- Connections ---

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.deps.Store.ListConnections(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": conns, "count": len(conns)})
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("id")

	var conn schema.Connection
	if err := decodeBody(r, &conn); err != nil {
		writeError(w, err)
		return
	}
	if conn.SourceNodeID == "" || conn.TargetNodeID == "" {
		writeError(w, schema.NewError(schema.ErrCodeValidation, "source_node_id and target_node_id are required"))
		return
	}

	if err := s.deps.Store.CreateConnection(r.Context(), scenarioID, &conn); err != nil {
		writeError(w, err)
		return
	}

	s.audit(r.Context(), scenarioID, conn.SourceNodeID, schema.EventConnectionCreated, map[string]any{
		"target_node_id": conn.TargetNodeID,
	})
	writeJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.PathValue("id")
	connID, err := strconv.ParseInt(r.PathValue("conn_id"), 10, 64)
	if err != nil {
		writeError(w, schema.NewErrorf(schema.ErrCodeValidation, "invalid connection id %q", r.PathValue("conn_id")))
		return
	}

	if err := s.deps.Store.DeleteConnection(r.Context(), scenarioID, connID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": "true", "id": connID})
}

// --- Versions, revert, deploy ---

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.deps.Deploy.ListVersions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions, "count": len(versions)})
}

func (s *Server) handleSnapshotVersion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	v, err := s.deps.Deploy.Snapshot(r.Context(), r.PathValue("id"), body.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Deploy.Revert(r.Context(), r.PathValue("id"), r.PathValue("version"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Environment string `json:"environment"`
		DeployedBy  string `json:"deployed_by"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Environment == "" {
		body.Environment = "production"
	}

	d, err := s.deps.Deploy.Deploy(r.Context(), r.PathValue("id"), body.Environment, body.DeployedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// audit appends to the scenario event log, best effort.
func (s *Server) audit(ctx context.Context, scenarioID, nodeID, eventType string, payload map[string]any) {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	err := s.deps.Store.AppendEvent(ctx, &store.Event{
		ScenarioID: scenarioID,
		NodeID:     nodeID,
		Type:       eventType,
		Payload:    raw,
	})
	if err != nil {
		s.deps.Logger.Warn("append audit event failed", "scenario_id", scenarioID, "event", eventType, "error", err)
	}
}
