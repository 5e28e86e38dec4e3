package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arsflow/internal/deploy"
	"arsflow/internal/expressions"
	"arsflow/internal/scheduler"
	"arsflow/internal/server"
	"arsflow/internal/simulation"
	"arsflow/internal/store"
	"arsflow/internal/streaming"
	"arsflow/internal/tts"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the arsflow admin server",
	Long: `Starts the REST server together with the TTS worker and the
maintenance scheduler. Shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.AudioDir, 0o755); err != nil {
		return err
	}

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	hub := streaming.NewMemoryHub()

	engines := make([]tts.Engine, 0, len(cfg.Engines))
	for _, e := range cfg.Engines {
		engines = append(engines, tts.NewCommandEngine(e.Name, e.Version, e.Binary, e.Args...))
	}
	registry := tts.NewRegistry(engines...)

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return err
	}
	runner := simulation.NewRunner(cel, expressions.NewExprEngine(), hub, logger)

	ttsSvc := tts.NewService(st, registry, hub, cfg.AudioDir, logger)
	worker := tts.NewWorker(ttsSvc, 2*time.Second, logger)
	go worker.Run(ctx)

	janitor := scheduler.NewJanitor(logger)
	if err := scheduler.RegisterMaintenance(janitor, runner, st, hub, scheduler.DefaultMaintenanceConfig(), logger); err != nil {
		return err
	}
	if err := janitor.Start(ctx); err != nil {
		return err
	}
	defer janitor.Stop()

	srv := server.NewServer(server.Deps{
		Store:   st,
		Runner:  runner,
		TTS:     ttsSvc,
		Engines: registry,
		Deploy:  deploy.NewService(st, hub, logger),
		Hub:     hub,
		Token:   cfg.Token,
		Logger:  logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info("arsflow server listening", "addr", cfg.ListenAddr, "db", cfg.DBPath)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
