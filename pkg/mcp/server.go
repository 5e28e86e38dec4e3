package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/pkg/schema"
	"arsflow/pkg/transfer"
)

// SimulationDriver is the slice of the simulation runner the tools need.
type SimulationDriver interface {
	Start(ctx context.Context, sc *schema.Scenario) (*schema.SimulationState, error)
	Get(id string) (*schema.SimulationState, error)
	Apply(ctx context.Context, id string, action schema.SimulationAction) (*schema.SimulationState, error)
}

// ArsflowServerDeps holds the dependencies for creating an ArsflowServer.
type ArsflowServerDeps struct {
	Store    store.Store
	Driver   SimulationDriver
	Transfer *transfer.Manager
	Hub      streaming.EventHub
	Logger   *slog.Logger
}

// ArsflowServer wraps an MCP server with scenario tool handlers.
type ArsflowServer struct {
	store     store.Store
	driver    SimulationDriver
	transfer  *transfer.Manager
	hub       streaming.EventHub
	logger    *slog.Logger
	sessions  *SessionRegistry
	mcpServer *server.MCPServer
}

// NewArsflowServer creates an ArsflowServer with all tools registered.
func NewArsflowServer(deps ArsflowServerDeps) *ArsflowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &ArsflowServer{
		store:    deps.Store,
		driver:   deps.Driver,
		transfer: deps.Transfer,
		hub:      deps.Hub,
		logger:   logger,
		sessions: NewSessionRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"arsflow",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Arsflow manages call-center ARS scenarios. Use arsflow.query to list scenarios, arsflow.get to fetch one as a document, arsflow.validate to check a document before import, arsflow.export to export with an optional jq filter, arsflow.simulate to open a simulation session, arsflow.action to drive it, and arsflow.diagram to render the graph."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *ArsflowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *ArsflowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Sessions returns the simulation-to-session mapping used by the notifier.
func (s *ArsflowServer) Sessions() *SessionRegistry {
	return s.sessions
}

func (s *ArsflowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: getTool(), Handler: s.handleGet},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: exportTool(), Handler: s.handleExport},
		{Tool: simulateTool(), Handler: s.handleSimulate},
		{Tool: actionTool(), Handler: s.handleAction},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func queryTool() mcp.Tool {
	return mcp.NewTool("arsflow.query",
		mcp.WithDescription("List scenarios"),
		mcp.WithObject("filter", mcp.Description("Filter criteria (status, category, limit)")),
	)
}

func getTool() mcp.Tool {
	return mcp.NewTool("arsflow.get",
		mcp.WithDescription("Fetch a scenario as its canonical JSON document, nodes and edges included"),
		mcp.WithString("scenario_id", mcp.Required(), mcp.Description("ID of the scenario to fetch")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("arsflow.validate",
		mcp.WithDescription("Validate a scenario document without importing it. Returns the full error and warning list"),
		mcp.WithObject("document", mcp.Required(), mcp.Description("Scenario document to validate (scenario, nodes, edges)")),
	)
}

func exportTool() mcp.Tool {
	return mcp.NewTool("arsflow.export",
		mcp.WithDescription("Export a scenario as a document, optionally narrowed by a jq filter"),
		mcp.WithString("scenario_id", mcp.Required(), mcp.Description("ID of the scenario to export")),
		mcp.WithString("filter", mcp.Description("jq filter applied to the exported document")),
	)
}

func simulateTool() mcp.Tool {
	return mcp.NewTool("arsflow.simulate",
		mcp.WithDescription("Open a simulation session on a scenario and return its initial state"),
		mcp.WithString("scenario_id", mcp.Required(), mcp.Description("ID of the scenario to simulate")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("arsflow.diagram",
		mcp.WithDescription("Render a scenario graph. Returns ASCII art or Mermaid flowchart syntax; pass simulation_id to highlight the current node"),
		mcp.WithString("scenario_id", mcp.Required(), mcp.Description("ID of the scenario to diagram")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid"),
			mcp.Description("Output format"),
		),
		mcp.WithString("simulation_id", mcp.Description("Running simulation whose position should be highlighted")),
	)
}

func actionTool() mcp.Tool {
	return mcp.NewTool("arsflow.action",
		mcp.WithDescription("Execute an action on a running simulation session, or fetch its state with 'status'"),
		mcp.WithString("simulation_id", mcp.Required(), mcp.Description("ID of the simulation session")),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("next", "input", "condition_select", "restart", "stop", "status"),
			mcp.Description("Action to execute"),
		),
		mcp.WithString("input_value", mcp.Description("Caller input (required for the input action)")),
		mcp.WithString("condition_choice", mcp.Description("Branch choice (required for condition_select)")),
	)
}
