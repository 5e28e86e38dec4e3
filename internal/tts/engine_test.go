package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsflow/pkg/schema"
)

// fakeEngine is a scriptable Engine for tests.
type fakeEngine struct {
	name      string
	available bool
	err       error
	calls     atomic.Int64
	lastText  string
	lastVoice string
}

func (e *fakeEngine) Name() string    { return e.name }
func (e *fakeEngine) Version() string { return "test" }
func (e *fakeEngine) Available() bool { return e.available }

func (e *fakeEngine) Synthesize(_ context.Context, text, voice, outPath string) error {
	e.calls.Add(1)
	e.lastText = text
	e.lastVoice = voice
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(outPath, []byte("RIFF"), 0o644)
}

func TestRegistry_FirstAvailableBecomesActive(t *testing.T) {
	offline := &fakeEngine{name: "coqui", available: false}
	online := &fakeEngine{name: "piper", available: true}
	r := NewRegistry(offline, online)

	active, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, "piper", active.Name())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "coqui", list[0].Name)
	assert.False(t, list[0].Active)
	assert.True(t, list[1].Active)
}

func TestRegistry_NoEngineAvailable(t *testing.T) {
	r := NewRegistry(&fakeEngine{name: "coqui", available: false})
	_, err := r.Active()
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(err))
}

func TestRegistry_Switch(t *testing.T) {
	a := &fakeEngine{name: "piper", available: true}
	b := &fakeEngine{name: "coqui", available: true}
	r := NewRegistry(a, b)

	require.NoError(t, r.Switch("coqui"))
	active, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, "coqui", active.Name())

	status, err := r.Status("piper")
	require.NoError(t, err)
	assert.False(t, status.Active)
}

func TestRegistry_SwitchRejectsUnavailable(t *testing.T) {
	r := NewRegistry(
		&fakeEngine{name: "piper", available: true},
		&fakeEngine{name: "coqui", available: false},
	)
	err := r.Switch("coqui")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(err))
}

func TestRegistry_SwitchUnknown(t *testing.T) {
	r := NewRegistry(&fakeEngine{name: "piper", available: true})
	err := r.Switch("espeak")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestRegistry_Test(t *testing.T) {
	e := &fakeEngine{name: "piper", available: true}
	r := NewRegistry(e)
	out := filepath.Join(t.TempDir(), "sample.wav")

	err := r.Test(context.Background(), "piper", "안녕하세요", "minji", out)
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", e.lastText)
	assert.Equal(t, "minji", e.lastVoice)
	assert.FileExists(t, out)
}

func TestRegistry_Benchmark(t *testing.T) {
	r := NewRegistry(&fakeEngine{name: "piper", available: true})
	out := filepath.Join(t.TempDir(), "bench.wav")

	bench, err := r.Benchmark(context.Background(), "piper", "주문이 접수되었습니다", "minji", out)
	require.NoError(t, err)
	assert.Equal(t, "piper", bench.Engine)
	assert.GreaterOrEqual(t, bench.DurationMs, int64(0))
	assert.Greater(t, bench.CharPerSec, 0.0)
}

func TestRegistry_BenchmarkFailure(t *testing.T) {
	r := NewRegistry(&fakeEngine{name: "piper", available: true, err: errors.New("model missing")})
	_, err := r.Benchmark(context.Background(), "piper", "안내", "minji", filepath.Join(t.TempDir(), "x.wav"))
	require.Error(t, err)
}

func TestCommandEngine_MissingBinary(t *testing.T) {
	e := NewCommandEngine("nope", "0.1", "definitely-not-installed-tts-binary", "{text}", "{out}")
	assert.False(t, e.Available())

	err := e.Synthesize(context.Background(), "안녕", "minji", filepath.Join(t.TempDir(), "x.wav"))
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(err))
}
