package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"arsflow/internal/expressions"
	"arsflow/internal/simulation"
	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/internal/validation"
	"arsflow/pkg/mcp"
	"arsflow/pkg/transfer"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve scenario tools over MCP stdio",
	Long: `Exposes the scenario store, validation and simulation as MCP tools
on stdin/stdout, for use by agent clients. Simulation updates are pushed
back to the session that opened them.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return err
	}
	validator, err := validation.NewScenarioValidator(cel)
	if err != nil {
		return err
	}

	hub := streaming.NewMemoryHub()
	srv := mcp.NewArsflowServer(mcp.ArsflowServerDeps{
		Store:    st,
		Driver:   simulation.NewRunner(cel, expressions.NewExprEngine(), hub, logger),
		Transfer: transfer.NewManager(validator, expressions.NewGoJQEngine()),
		Hub:      hub,
		Logger:   logger,
	})

	notifier := mcp.NewMCPNotifier(srv.MCPServer(), srv.Sessions())
	go func() {
		if err := notifier.Watch(ctx, hub); err != nil && ctx.Err() == nil {
			logger.Warn("notifier stopped", "error", err)
		}
	}()

	logger.Info("arsflow mcp server on stdio", "db", cfg.DBPath)
	return srv.Serve(ctx)
}
