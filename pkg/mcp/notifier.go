package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
)

// SimulationNotifier pushes simulation updates to connected MCP sessions.
type SimulationNotifier interface {
	Notify(ctx context.Context, simulationID string, payload map[string]any) error
}

// MCPNotifier implements SimulationNotifier using MCP push notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via the MCP server.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// Notify sends a notification to the session watching a simulation.
// Best-effort: returns nil if no session is watching.
func (n *MCPNotifier) Notify(_ context.Context, simulationID string, payload map[string]any) error {
	sessionID, ok := n.sessions.SessionFor(simulationID)
	if !ok {
		return nil
	}
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Session expired between lookup and send.
		n.sessions.Remove(sessionID)
		return nil
	}
	return err
}

// Watch forwards simulation lifecycle events from the hub to whichever
// session opened the simulation. Blocks until ctx is cancelled.
func (n *MCPNotifier) Watch(ctx context.Context, hub streaming.EventHub) error {
	events, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{
		EventTypes: []string{
			schema.EventSimulationAdvanced,
			schema.EventSimulationCompleted,
			schema.EventSimulationStopped,
			schema.EventSimulationExpired,
		},
	})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.SimulationID == "" {
				continue
			}
			_ = n.Notify(ctx, ev.SimulationID, map[string]any{
				"event_type":    ev.EventType,
				"simulation_id": ev.SimulationID,
				"scenario_id":   ev.ScenarioID,
				"payload":       ev.Payload,
			})
		}
	}
}
