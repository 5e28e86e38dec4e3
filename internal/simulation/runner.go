package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"arsflow/internal/expressions"
	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
)

// Runner drives server-held simulation sessions over scenario graphs.
// The client never advances the flow itself: every action goes through
// Apply, and the returned SimulationState is authoritative.
type Runner struct {
	sessions *Registry
	cel      *expressions.CELEngine
	expr     *expressions.ExprEngine
	prompt   *expressions.PromptRenderer
	hub      streaming.EventHub
	logger   *slog.Logger
}

// NewRunner creates a Runner. hub may be nil to disable event streaming.
func NewRunner(cel *expressions.CELEngine, expr *expressions.ExprEngine, hub streaming.EventHub, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sessions: NewRegistry(),
		cel:      cel,
		expr:     expr,
		prompt:   expressions.NewPromptRenderer(),
		hub:      hub,
		logger:   logger,
	}
}

// Sessions exposes the registry for the expiry janitor.
func (r *Runner) Sessions() *Registry { return r.sessions }

// Start creates a session positioned at the scenario's start node.
func (r *Runner) Start(ctx context.Context, sc *schema.Scenario) (*schema.SimulationState, error) {
	startID := ""
	nodes := make(map[string]*schema.ScenarioNode, len(sc.Nodes))
	for i := range sc.Nodes {
		n := &sc.Nodes[i]
		nodes[n.NodeID] = n
		if n.NodeType == schema.NodeTypeStart {
			if startID != "" {
				return nil, schema.NewErrorf(schema.ErrCodeSimulation,
					"scenario %q has multiple start nodes", sc.ID)
			}
			startID = n.NodeID
		}
	}
	if startID == "" {
		return nil, schema.NewErrorf(schema.ErrCodeSimulation,
			"scenario %q has no start node", sc.ID)
	}

	now := time.Now().UTC()
	sess := &Session{
		id:        uuid.New().String(),
		scenario:  sc,
		nodes:     nodes,
		current:   startID,
		scope:     expressions.NewSessionScope(scenarioMeta(sc), nil),
		status:    schema.SimulationStatusRunning,
		startedAt: now,
		updatedAt: now,
	}
	r.sessions.Add(sess)

	r.publish(ctx, sess, schema.EventSimulationStarted)
	return r.snapshot(sess), nil
}

// Get returns the current state of a session.
func (r *Runner) Get(id string) (*schema.SimulationState, error) {
	sess, err := r.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return r.stateLocked(sess), nil
}

// Apply executes one action against a session and returns the new state.
// Rejected actions leave the session unchanged.
func (r *Runner) Apply(ctx context.Context, id string, action schema.SimulationAction) (*schema.SimulationState, error) {
	sess, err := r.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != schema.SimulationStatusRunning && action.ActionType != schema.ActionRestart {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidAction,
			"simulation %q is %s; only restart is accepted", id, sess.status)
	}

	switch action.ActionType {
	case schema.ActionRestart:
		err = r.restartLocked(sess)
	case schema.ActionStop:
		sess.status = schema.SimulationStatusStopped
		sess.touch()
		r.publish(ctx, sess, schema.EventSimulationStopped)
	case schema.ActionNext:
		err = r.nextLocked(ctx, sess)
	case schema.ActionInput:
		err = r.inputLocked(ctx, sess, action.InputValue)
	case schema.ActionConditionSelect:
		err = r.selectLocked(ctx, sess, action.ConditionChoice)
	default:
		err = schema.NewErrorf(schema.ErrCodeInvalidAction,
			"unknown action type %q", string(action.ActionType))
	}
	if err != nil {
		return nil, err
	}

	return r.stateLocked(sess), nil
}

// restartLocked resets the session to the start node with fresh state.
func (r *Runner) restartLocked(sess *Session) error {
	startID := ""
	for id, n := range sess.nodes {
		if n.NodeType == schema.NodeTypeStart {
			startID = id
			break
		}
	}
	if startID == "" {
		return schema.NewErrorf(schema.ErrCodeSimulation,
			"scenario %q has no start node", sess.scenario.ID)
	}
	sess.current = startID
	sess.scope = expressions.NewSessionScope(scenarioMeta(sess.scenario), nil)
	sess.status = schema.SimulationStatusRunning
	sess.touch()
	return nil
}

// nextLocked advances past start, message, and transfer nodes.
func (r *Runner) nextLocked(ctx context.Context, sess *Session) error {
	node := sess.nodes[sess.current]
	switch node.NodeType {
	case schema.NodeTypeStart, schema.NodeTypeMessage, schema.NodeTypeTransfer:
	default:
		return schema.NewErrorf(schema.ErrCodeInvalidAction,
			"action next is not valid on a %s node", node.NodeType).WithNode(node.NodeID)
	}
	return r.advanceLocked(ctx, sess)
}

// inputLocked records caller input at an input node, validating it first.
func (r *Runner) inputLocked(ctx context.Context, sess *Session, value string) error {
	node := sess.nodes[sess.current]
	if node.NodeType != schema.NodeTypeInput {
		return schema.NewErrorf(schema.ErrCodeInvalidAction,
			"action input is not valid on a %s node", node.NodeType).WithNode(node.NodeID)
	}

	cfg, err := schema.DecodeConfig(node.NodeType, node.Config)
	if err != nil {
		return err
	}
	ic := cfg.(*schema.InputConfig)

	if ic.InputValidation != "" {
		ok, err := r.expr.ValidateInput(ctx, ic.InputValidation, value)
		if err != nil {
			return err
		}
		if !ok {
			// Session stays on the input node so the caller can retry.
			return schema.NewErrorf(schema.ErrCodeValidation,
				"input %q rejected by validation rule", value).WithNode(node.NodeID)
		}
	}

	sess.scope.RecordInput(node.NodeID, value)
	return r.advanceLocked(ctx, sess)
}

// selectLocked follows a branch option chosen by key.
func (r *Runner) selectLocked(ctx context.Context, sess *Session, choice string) error {
	node := sess.nodes[sess.current]
	if node.NodeType != schema.NodeTypeBranch {
		return schema.NewErrorf(schema.ErrCodeInvalidAction,
			"action condition_select is not valid on a %s node", node.NodeType).WithNode(node.NodeID)
	}

	cfg, err := schema.DecodeConfig(node.NodeType, node.Config)
	if err != nil {
		return err
	}
	bc := cfg.(*schema.BranchConfig)

	var opt *schema.BranchOption
	for i := range bc.Branches {
		if bc.Branches[i].Key == choice {
			opt = &bc.Branches[i]
			break
		}
	}
	if opt == nil {
		return schema.NewErrorf(schema.ErrCodeInvalidAction,
			"branch node %q has no option %q", node.NodeID, choice).WithNode(node.NodeID)
	}

	sess.scope.RecordInput(node.NodeID, choice)

	if opt.Target != "" {
		return r.moveLocked(ctx, sess, opt.Target)
	}
	// No pinned target: fall back to connection conditions.
	return r.advanceLocked(ctx, sess)
}

// advanceLocked follows the outgoing connection for the current node.
// Conditioned connections are evaluated in document order; the first true
// condition wins, else the first unconditioned connection is the default.
func (r *Runner) advanceLocked(ctx context.Context, sess *Session) error {
	node := sess.nodes[sess.current]
	data := sess.scope.EvalData(map[string]any{
		"id":   node.NodeID,
		"type": string(node.NodeType),
	})

	defaultTarget := ""
	for _, c := range sess.scenario.Connections {
		if c.SourceNodeID != sess.current {
			continue
		}
		if c.Condition == "" {
			if defaultTarget == "" {
				defaultTarget = c.TargetNodeID
			}
			continue
		}
		ok, err := r.cel.EvaluateBool(ctx, c.Condition, data)
		if err != nil {
			return err
		}
		if ok {
			return r.moveLocked(ctx, sess, c.TargetNodeID)
		}
	}

	if defaultTarget == "" {
		return schema.NewErrorf(schema.ErrCodeSimulation,
			"no transition from node %q", sess.current).WithNode(sess.current)
	}
	return r.moveLocked(ctx, sess, defaultTarget)
}

// moveLocked positions the session on target and handles end-of-flow.
func (r *Runner) moveLocked(ctx context.Context, sess *Session, target string) error {
	next, ok := sess.nodes[target]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeSimulation,
			"transition targets non-existent node %q", target).WithNode(sess.current)
	}

	sess.current = next.NodeID
	sess.touch()

	if next.NodeType == schema.NodeTypeEnd {
		sess.status = schema.SimulationStatusCompleted
		r.publish(ctx, sess, schema.EventSimulationCompleted)
	} else {
		r.publish(ctx, sess, schema.EventSimulationAdvanced)
	}
	return nil
}

// snapshot returns the state, taking the session lock.
func (r *Runner) snapshot(sess *Session) *schema.SimulationState {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return r.stateLocked(sess)
}

// stateLocked builds the client-facing view. Must be called with sess.mu held.
func (r *Runner) stateLocked(sess *Session) *schema.SimulationState {
	node := sess.nodes[sess.current]

	return &schema.SimulationState{
		SimulationID:     sess.id,
		ScenarioID:       sess.scenario.ID,
		CurrentNodeID:    sess.current,
		NodeData:         r.renderNode(sess, node),
		AvailableActions: availableActions(sess.status, node.NodeType),
		Status:           sess.status,
		SessionData:      sess.scope.SessionData(),
		IsCompleted:      sess.status == schema.SimulationStatusCompleted,
		StartedAt:        sess.startedAt,
		UpdatedAt:        sess.updatedAt,
	}
}

// renderNode returns a copy of the node with message text placeholders
// resolved against the session scope. Render failures fall back to the raw
// text; a broken placeholder should not kill the session.
func (r *Runner) renderNode(sess *Session, node *schema.ScenarioNode) *schema.ScenarioNode {
	out := *node
	if node.NodeType != schema.NodeTypeMessage || !expressions.HasPlaceholders(string(node.Config)) {
		return &out
	}

	cfg, err := schema.DecodeConfig(node.NodeType, node.Config)
	if err != nil {
		return &out
	}
	mc := cfg.(*schema.MessageConfig)

	rendered, err := r.prompt.Render(mc.Text, sess.scope.PromptData())
	if err != nil {
		r.logger.Warn("prompt render failed",
			"scenario_id", sess.scenario.ID, "node_id", node.NodeID, "error", err)
		return &out
	}
	mc.Text = rendered
	if raw, err := schema.EncodeConfig(mc); err == nil {
		out.Config = raw
	}
	return &out
}

// availableActions is the closed action set for a status and node type.
func availableActions(status schema.SimulationStatus, t schema.NodeType) []schema.ActionType {
	switch status {
	case schema.SimulationStatusRunning:
	case schema.SimulationStatusCompleted, schema.SimulationStatusStopped:
		return []schema.ActionType{schema.ActionRestart}
	default: // expired
		return nil
	}

	switch t {
	case schema.NodeTypeStart, schema.NodeTypeMessage, schema.NodeTypeTransfer:
		return []schema.ActionType{schema.ActionNext, schema.ActionRestart, schema.ActionStop}
	case schema.NodeTypeBranch:
		return []schema.ActionType{schema.ActionConditionSelect, schema.ActionRestart, schema.ActionStop}
	case schema.NodeTypeInput:
		return []schema.ActionType{schema.ActionInput, schema.ActionRestart, schema.ActionStop}
	default:
		return nil
	}
}

// scenarioMeta builds the scenario namespace visible to conditions and prompts.
func scenarioMeta(sc *schema.Scenario) map[string]any {
	meta := map[string]any{
		"id":       sc.ID,
		"name":     sc.Name,
		"category": sc.Category,
		"version":  sc.Version,
	}
	for k, v := range sc.Metadata {
		meta[k] = v
	}
	return meta
}

// publish emits a stream event; failures are logged, never propagated.
func (r *Runner) publish(ctx context.Context, sess *Session, eventType string) {
	if r.hub == nil {
		return
	}
	err := r.hub.Publish(ctx, streaming.StreamEvent{
		ScenarioID:   sess.scenario.ID,
		SimulationID: sess.id,
		NodeID:       sess.current,
		EventType:    eventType,
	})
	if err != nil {
		r.logger.Warn("publish simulation event failed",
			"simulation_id", sess.id, "event", eventType, "error", err)
	}
}
