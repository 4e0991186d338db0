package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/albertviilik/pipecat-flows/pkg/adapters/process"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("handler commands are exercised with sh")
	}
	return "sh"
}

func TestRunner_Handle(t *testing.T) {
	sh := shell(t)
	r := process.NewRunner()
	r.Register("echo_size", sh, "-c", "echo party of $FLOWS_ARG_SIZE")
	r.Register("lookup", sh, "-c", `echo '{"status":"success","table":12}'`)
	r.Register("broken", sh, "-c", "echo out of tables >&2; exit 3")
	r.Register("all_args", sh, "-c", "echo $FLOWS_ARGS")

	ctx := context.Background()

	t.Run("passes arguments as environment", func(t *testing.T) {
		res, err := r.Handle(ctx, domain.Call{Name: "echo_size", Args: map[string]any{"size": float64(4)}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "success", res["status"])
		assert.Equal(t, "party of 4", res["output"])
	})

	t.Run("json output becomes the result", func(t *testing.T) {
		res, err := r.Handle(ctx, domain.Call{Name: "lookup"}, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.Result{"status": "success", "table": float64(12)}, res)
	})

	t.Run("failing command yields error result", func(t *testing.T) {
		res, err := r.Handle(ctx, domain.Call{Name: "broken"}, nil)
		require.NoError(t, err)
		assert.True(t, res.Failed())
		assert.Contains(t, res.ErrorMessage(), "out of tables")
	})

	t.Run("full argument object", func(t *testing.T) {
		res, err := r.Handle(ctx, domain.Call{Name: "all_args", Args: map[string]any{"time": "19:30"}}, nil)
		require.NoError(t, err)
		assert.Contains(t, res["output"], `"time":"19:30"`)
	})

	t.Run("unlisted command", func(t *testing.T) {
		_, err := r.Handle(ctx, domain.Call{Name: "rm_rf"}, nil)
		var unknown *domain.UnknownActionError
		assert.ErrorAs(t, err, &unknown)
	})
}

func TestRunner_RegisterAll(t *testing.T) {
	sh := shell(t)
	r := process.NewRunner(process.WithConfig(map[string]process.Config{
		"b": {Name: "b", Command: sh, Args: []string{"-c", "echo b"}},
		"a": {Name: "a", Command: sh, Args: []string{"-c", "echo a"}},
	}))
	assert.Equal(t, []string{"a", "b"}, r.Names())

	reg := registry.NewRegistry()
	require.NoError(t, r.RegisterAll(reg))
	assert.True(t, reg.Has("a"))
	assert.True(t, reg.Has("b"))
}

func TestRunner_Environment(t *testing.T) {
	sh := shell(t)
	dir := t.TempDir()
	r := process.NewRunner(
		process.WithBaseDir(dir),
		process.WithConfig(map[string]process.Config{
			"where": {Name: "where", Command: sh, Args: []string{"-c", "echo $GREETING from $(pwd)"}, Environment: map[string]string{"GREETING": "bonjour"}},
		}),
	)
	res, err := r.Handle(context.Background(), domain.Call{Name: "where"}, nil)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, []string{"bonjour from " + dir, "bonjour from " + resolved}, res["output"])
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handlers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
handlers:
  - name: record_time
    command: ./record.sh
    args: [--verbose]
    env: {MODE: test}
`), 0o644))

	cfg, err := process.LoadConfig(path)
	require.NoError(t, err)
	require.Contains(t, cfg, "record_time")
	assert.Equal(t, "./record.sh", cfg["record_time"].Command)
	assert.Equal(t, []string{"--verbose"}, cfg["record_time"].Args)
	assert.Equal(t, "test", cfg["record_time"].Environment["MODE"])

	jsonPath := filepath.Join(dir, "handlers.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"handlers":[{"name":"a","command":"true"},{"name":"a","command":"true"}]}`), 0o644))
	_, err = process.LoadConfig(jsonPath)
	assert.ErrorContains(t, err, "declared twice")

	_, err = process.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
