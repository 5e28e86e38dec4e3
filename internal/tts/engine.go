package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"arsflow/pkg/schema"
)

// Engine is one synthesis backend.
type Engine interface {
	Name() string
	Version() string
	Available() bool
	// Synthesize renders text with the given voice into outPath.
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// Registry holds the installed engines and tracks which one is active.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	order   []string
	active  string
}

// NewRegistry creates a registry. The first available engine becomes active.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
		r.order = append(r.order, e.Name())
		if r.active == "" && e.Available() {
			r.active = e.Name()
		}
	}
	return r
}

// List returns engine descriptors in registration order.
func (r *Registry) List() []schema.TTSEngine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]schema.TTSEngine, 0, len(r.order))
	for _, name := range r.order {
		e := r.engines[name]
		out = append(out, schema.TTSEngine{
			Name:      e.Name(),
			Version:   e.Version(),
			Available: e.Available(),
			Active:    name == r.active,
		})
	}
	return out
}

// Active returns the currently active engine.
func (r *Registry) Active() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		return nil, schema.NewError(schema.ErrCodeExecution, "no TTS engine available")
	}
	return r.engines[r.active], nil
}

// Status returns the descriptor of one engine.
func (r *Registry) Status(name string) (schema.TTSEngine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return schema.TTSEngine{}, schema.NewErrorf(schema.ErrCodeNotFound, "tts engine %q not found", name)
	}
	return schema.TTSEngine{
		Name:      e.Name(),
		Version:   e.Version(),
		Available: e.Available(),
		Active:    name == r.active,
	}, nil
}

// Switch makes the named engine active. Unavailable engines are rejected.
func (r *Registry) Switch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[name]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "tts engine %q not found", name)
	}
	if !e.Available() {
		return schema.NewErrorf(schema.ErrCodeExecution, "tts engine %q is not available", name)
	}
	r.active = name
	return nil
}

// Test synthesizes sampleText with the named engine into outPath.
func (r *Registry) Test(ctx context.Context, name, sampleText, voice, outPath string) error {
	r.mu.RLock()
	e, ok := r.engines[name]
	r.mu.RUnlock()
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "tts engine %q not found", name)
	}
	return e.Synthesize(ctx, sampleText, voice, outPath)
}

// Benchmark times a synthesis run for the named engine.
func (r *Registry) Benchmark(ctx context.Context, name, sampleText, voice, outPath string) (*schema.EngineBenchmark, error) {
	start := time.Now()
	if err := r.Test(ctx, name, sampleText, voice, outPath); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	chars := float64(len([]rune(sampleText)))
	perSec := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		perSec = chars / secs
	}
	return &schema.EngineBenchmark{
		Engine:     name,
		SampleText: sampleText,
		DurationMs: elapsed.Milliseconds(),
		CharPerSec: perSec,
	}, nil
}

// CommandEngine shells out to an installed synthesis binary.
// The argument template may reference {text}, {voice}, and {out}.
type CommandEngine struct {
	name    string
	version string
	binary  string
	args    []string
}

// NewCommandEngine creates a CommandEngine. binary is resolved via PATH at
// Available()/Synthesize() time, so engines installed later are picked up.
func NewCommandEngine(name, version, binary string, args ...string) *CommandEngine {
	return &CommandEngine{name: name, version: version, binary: binary, args: args}
}

func (e *CommandEngine) Name() string    { return e.name }
func (e *CommandEngine) Version() string { return e.version }

func (e *CommandEngine) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

func (e *CommandEngine) Synthesize(ctx context.Context, text, voice, outPath string) error {
	bin, err := exec.LookPath(e.binary)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeExecution,
			"tts engine %q binary %q not found", e.name, e.binary).WithCause(err)
	}

	args := make([]string, 0, len(e.args))
	replacer := strings.NewReplacer("{text}", text, "{voice}", voice, "{out}", outPath)
	for _, a := range e.args {
		args = append(args, replacer.Replace(a))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeExecution,
			"tts engine %q failed: %s", e.name, strings.TrimSpace(string(out))).
			WithCause(err).
			WithDetails(map[string]any{"engine": e.name, "output": fmt.Sprintf("%.500s", out)})
	}
	return nil
}

var _ Engine = (*CommandEngine)(nil)
