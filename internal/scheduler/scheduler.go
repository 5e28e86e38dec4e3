package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one recurring maintenance job driven by a cron expression.
type Task struct {
	Name string
	Cron string
	Run  func(ctx context.Context) error

	nextRun time.Time
}

// Janitor runs maintenance tasks on cron schedules: expiring idle simulation
// sessions, sweeping terminal ones, and failing TTS generations stuck in
// processing. Tasks never overlap with themselves.
type Janitor struct {
	parser cron.Parser
	logger *slog.Logger
	tasks  []*Task
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// NewJanitor creates a Janitor with no tasks registered.
func NewJanitor(logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Register adds a task. Returns an error if the cron expression is invalid
// or the janitor is already running.
func (j *Janitor) Register(name, cronExpr string, run func(ctx context.Context) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done != nil {
		return fmt.Errorf("janitor already started")
	}

	schedule, err := j.parser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("parse cron expression %q for task %q: %w", cronExpr, name, err)
	}

	j.tasks = append(j.tasks, &Task{
		Name:    name,
		Cron:    cronExpr,
		Run:     run,
		nextRun: schedule.Next(time.Now().UTC()),
	})
	return nil
}

// Start launches the background loop with a 30s ticker.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.done != nil {
		j.mu.Unlock()
		return fmt.Errorf("janitor already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.mu.Unlock()

	go j.loop(runCtx)
	j.logger.Info("janitor started", "tasks", len(j.tasks))
	return nil
}

func (j *Janitor) loop(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Tick(ctx)
		}
	}
}

// Tick runs every task that is due. Exposed for tests and for running a
// maintenance pass on demand.
func (j *Janitor) Tick(ctx context.Context) {
	now := time.Now().UTC()

	j.mu.Lock()
	tasks := make([]*Task, len(j.tasks))
	copy(tasks, j.tasks)
	j.mu.Unlock()

	for _, task := range tasks {
		if task.nextRun.After(now) {
			continue
		}
		if !j.tryAcquire(task.Name) {
			continue
		}
		j.runTask(ctx, task, now)
		j.release(task.Name)
	}
}

func (j *Janitor) runTask(ctx context.Context, task *Task, now time.Time) {
	if err := task.Run(ctx); err != nil {
		j.logger.Error("maintenance task failed",
			slog.String("task", task.Name),
			slog.String("error", err.Error()),
		)
	}

	schedule, err := j.parser.Parse(task.Cron)
	if err != nil {
		// Validated at Register; unreachable unless the task was mutated.
		j.logger.Error("reparse cron failed", slog.String("task", task.Name), slog.String("error", err.Error()))
		return
	}
	j.mu.Lock()
	task.nextRun = schedule.Next(now)
	j.mu.Unlock()
}

func (j *Janitor) tryAcquire(name string) bool {
	j.inflightMu.Lock()
	defer j.inflightMu.Unlock()
	if _, ok := j.inflight[name]; ok {
		return false
	}
	j.inflight[name] = struct{}{}
	return true
}

func (j *Janitor) release(name string) {
	j.inflightMu.Lock()
	defer j.inflightMu.Unlock()
	delete(j.inflight, name)
}

// NextRun computes the next fire time of a cron expression after from.
func (j *Janitor) NextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := j.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the janitor.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel == nil {
		return nil
	}

	j.cancel()
	<-j.done
	j.cancel = nil
	j.done = nil

	j.logger.Info("janitor stopped")
	return nil
}
